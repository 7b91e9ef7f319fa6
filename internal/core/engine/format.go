package engine

import "fmt"

func kwhStr(v float64) string {
	return fmt.Sprintf("%.2f kWh", v)
}

func socStr(v float64) string {
	return fmt.Sprintf("%.0f%%", v)
}
