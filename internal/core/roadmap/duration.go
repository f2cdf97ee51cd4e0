package roadmap

import (
	"fmt"
	"regexp"
	"strconv"
)

// DefaultTaskMinutes は所要時間を解釈できないタスクの分数です
const DefaultTaskMinutes = 10

var (
	hoursPattern   = regexp.MustCompile(`(\d+)\s*h`)
	minutesPattern = regexp.MustCompile(`(\d+)\s*m`)
	numberPattern  = regexp.MustCompile(`(\d+)`)
)

// ParseMinutes は "1h 30m" や "45 minutes" のような所要時間を分に変換します
func ParseMinutes(s string) int {
	total := 0
	matched := false
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		total += h * 60
		matched = true
	}
	if m := minutesPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		total += n
		matched = true
	}
	if matched {
		return total
	}
	if m := numberPattern.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	return DefaultTaskMinutes
}

// FormatMinutes は分を "2h 55m"、"2h"、"45 minutes" の形式で表します
func FormatMinutes(minutes int) string {
	if minutes >= 60 {
		h, m := minutes/60, minutes%60
		if m == 0 {
			return fmt.Sprintf("%dh", h)
		}
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%d minutes", minutes)
}

// EstimateFromSteps は手順数からタスクの所要時間を見積もります
func EstimateFromSteps(steps int) string {
	switch {
	case steps >= 7:
		return "30 minutes"
	case steps >= 5:
		return "20 minutes"
	case steps >= 3:
		return "15 minutes"
	default:
		return "10 minutes"
	}
}
