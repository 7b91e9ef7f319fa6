package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	MQTT     MQTTConfig  `mapstructure:"mqtt"`
	Entry    EntryConfig `mapstructure:"entry"`
	DataDir  string      `mapstructure:"data_dir"`
	TestMode bool        `mapstructure:"test_mode"`
	Port     uint        `mapstructure:"port"`
	HttpLog  bool        `mapstructure:"http_log"`
}

type MQTTConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	BaseTopic  string `mapstructure:"base_topic"`
	HostPrefix string `mapstructure:"host_prefix"`
}

// EntryConfig is one advisor config entry: battery parameters plus every
// entity id and threshold the decision flows consult.
type EntryConfig struct {
	ID                  string          `mapstructure:"id"`
	Battery             BatteryConfig   `mapstructure:"battery"`
	Margin              float64         `mapstructure:"margin"`
	HourlyLossesKwh     float64         `mapstructure:"hourly_losses_kwh"`
	PVEfficiency        float64         `mapstructure:"pv_efficiency"`
	CompensationEnabled bool            `mapstructure:"compensation_enabled"`
	TariffEndHour       int             `mapstructure:"tariff_end_hour"`
	Sensors             SensorsConfig   `mapstructure:"sensors"`
	Programs            ProgramsConfig  `mapstructure:"programs"`
	Sell                SellConfig      `mapstructure:"sell"`
	Balancing           BalancingConfig `mapstructure:"balancing"`
	HeatPump            HeatPumpConfig  `mapstructure:"heat_pump"`
}

type BatteryConfig struct {
	CapacityAh float64 `mapstructure:"capacity_ah"`
	Voltage    float64 `mapstructure:"voltage"`
	MinSoc     float64 `mapstructure:"min_soc"`
	MaxSoc     float64 `mapstructure:"max_soc"`
	Efficiency float64 `mapstructure:"efficiency"`
}

type SensorsConfig struct {
	BatterySoc          string   `mapstructure:"battery_soc"`
	DailyLoad           string   `mapstructure:"daily_load"`
	UsageBuckets        []string `mapstructure:"usage_buckets"`
	DefaultDailyLoadKwh float64  `mapstructure:"default_daily_load_kwh"`
	PVForecastToday     string   `mapstructure:"pv_forecast_today"`
	PVForecastTomorrow  string   `mapstructure:"pv_forecast_tomorrow"`
	PVActualToday       string   `mapstructure:"pv_actual_today"`
	PVForecastTodayKwh  string   `mapstructure:"pv_forecast_today_kwh"`
	PVActualYesterday   string   `mapstructure:"pv_actual_yesterday"`
	PVForecastYesterday string   `mapstructure:"pv_forecast_yesterday"`
	MorningMaxPriceHour string   `mapstructure:"morning_max_price_hour"`
	EveningMaxPriceHour string   `mapstructure:"evening_max_price_hour"`
	MorningSellPrice    string   `mapstructure:"morning_sell_price"`
	EveningSellPrice    string   `mapstructure:"evening_sell_price"`
	RemainingForecast   string   `mapstructure:"remaining_forecast"`
}

type ProgramsConfig struct {
	Prog1Soc      string `mapstructure:"prog1_soc"`
	Prog2Soc      string `mapstructure:"prog2_soc"`
	Prog3Soc      string `mapstructure:"prog3_soc"`
	Prog5Soc      string `mapstructure:"prog5_soc"`
	Prog6Soc      string `mapstructure:"prog6_soc"`
	ChargeCurrent string `mapstructure:"charge_current"`
	WorkMode      string `mapstructure:"work_mode"`
	ExportPower   string `mapstructure:"export_power"`
}

type SellConfig struct {
	HighPriceThreshold float64 `mapstructure:"high_price_threshold"`
	ArbitrageMinPrice  float64 `mapstructure:"arbitrage_min_price"`
	ArbitrageCapKwh    float64 `mapstructure:"arbitrage_cap_kwh"`
	ExportWorkMode     string  `mapstructure:"export_work_mode"`
	DefaultWorkMode    string  `mapstructure:"default_work_mode"`
	MaxExportPowerW    float64 `mapstructure:"max_export_power_w"`
}

type BalancingConfig struct {
	IntervalDays   int     `mapstructure:"interval_days"`
	PVThresholdKwh float64 `mapstructure:"pv_threshold_kwh"`
}

type HeatPumpConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Domain  string `mapstructure:"domain"`
	Service string `mapstructure:"service"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}

// Validate checks the bounds the decision flows rely on.
func (e *EntryConfig) Validate() error {
	b := e.Battery
	if b.CapacityAh <= 0 {
		return errors.New("battery capacity_ah must be > 0")
	}
	if b.Voltage <= 0 {
		return errors.New("battery voltage must be > 0")
	}
	if b.MinSoc < 0 || b.MinSoc >= b.MaxSoc || b.MaxSoc > 100 {
		return fmt.Errorf("battery SOC bounds must satisfy 0 <= min_soc < max_soc <= 100, got min=%.1f max=%.1f", b.MinSoc, b.MaxSoc)
	}
	if b.Efficiency <= 0 || b.Efficiency > 100 {
		return fmt.Errorf("battery efficiency must be in (0, 100], got %.1f", b.Efficiency)
	}
	if e.Margin <= 0 {
		return fmt.Errorf("margin must be > 0, got %.2f", e.Margin)
	}
	if e.TariffEndHour < 0 || e.TariffEndHour > 23 {
		return fmt.Errorf("tariff_end_hour must be in [0, 23], got %d", e.TariffEndHour)
	}
	if len(e.Sensors.UsageBuckets) > 6 {
		return fmt.Errorf("at most 6 usage bucket sensors are supported, got %d", len(e.Sensors.UsageBuckets))
	}
	if e.Balancing.IntervalDays < 0 {
		return errors.New("balancing interval_days cannot be negative")
	}
	return nil
}
