package util

import (
	"github.com/acazau/gridpilot/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		MQTT: config.MQTTConfig{
			Host:       "localhost",
			Port:       1883,
			BaseTopic:  "gridpilot",
			HostPrefix: "homehost",
		},
		Entry: config.EntryConfig{
			ID: "home",
			Battery: config.BatteryConfig{
				CapacityAh: 200,
				Voltage:    48,
				MinSoc:     10,
				MaxSoc:     100,
				Efficiency: 95,
			},
			Margin:        1.1,
			TariffEndHour: 13,
			PVEfficiency:  90,
			Sensors: config.SensorsConfig{
				BatterySoc: "sensor.battery_soc",
				DailyLoad:  "sensor.daily_load",
			},
			Programs: config.ProgramsConfig{
				Prog1Soc:      "number.prog1_soc",
				Prog2Soc:      "number.prog2_soc",
				Prog3Soc:      "number.prog3_soc",
				Prog5Soc:      "number.prog5_soc",
				Prog6Soc:      "number.prog6_soc",
				ChargeCurrent: "number.charge_current",
				WorkMode:      "select.work_mode",
				ExportPower:   "number.export_power",
			},
			Sell: config.SellConfig{
				HighPriceThreshold: 5.0,
				ArbitrageMinPrice:  2.0,
				ExportWorkMode:     "Export First",
				DefaultWorkMode:    "Zero Export To Load",
				MaxExportPowerW:    5000,
			},
			Balancing: config.BalancingConfig{
				IntervalDays:   14,
				PVThresholdKwh: 20.5,
			},
		},
		Port: 8080,
	}
}
