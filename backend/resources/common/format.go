/*
 * backend/resources/common/format.go
 *
 * Formatting helpers for projected resource fields.
 * - Age, CPU and memory rendering.
 * - Condition/status title casing.
 */

package common

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/util/duration"
)

var titleCaser = cases.Title(language.English)

// FormatAge renders the time since t the way kubectl does ("45s", "3h", "12d").
func FormatAge(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	since := time.Since(t)
	if since < 0 {
		since = 0
	}
	return duration.HumanDuration(since)
}

// TitleCase turns API enum values such as "Bound" or "not_ready" into display text.
func TitleCase(value string) string {
	if value == "" {
		return ""
	}
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// FormatCPU renders CPU quantities in millicores or cores.
func FormatCPU(q *resource.Quantity) string {
	if q == nil || q.IsZero() {
		return "-"
	}
	milliCores := q.MilliValue()
	if milliCores < 1000 {
		return fmt.Sprintf("%dm", milliCores)
	}
	return fmt.Sprintf("%.2f", float64(milliCores)/1000)
}

// FormatMemory renders memory quantities with binary suffixes.
func FormatMemory(q *resource.Quantity) string {
	if q == nil || q.IsZero() {
		return "-"
	}

	bytes := q.Value()

	const (
		ki = 1024
		mi = ki * 1024
		gi = mi * 1024
	)

	switch {
	case bytes >= gi:
		return fmt.Sprintf("%.2fGi", float64(bytes)/float64(gi))
	case bytes >= mi:
		return fmt.Sprintf("%.0fMi", float64(bytes)/float64(mi))
	case bytes >= ki:
		return fmt.Sprintf("%.0fKi", float64(bytes)/float64(ki))
	default:
		return fmt.Sprintf("%d", bytes)
	}
}
