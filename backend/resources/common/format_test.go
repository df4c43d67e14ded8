/*
 * backend/resources/common/format_test.go
 *
 * Tests for projected field formatting.
 */

package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/api/resource"
)

func TestFormatCPU(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		qty  *resource.Quantity
		want string
	}{
		{"NilQuantity", nil, "-"},
		{"Zero", resource.NewMilliQuantity(0, resource.DecimalSI), "-"},
		{"Milli", resource.NewMilliQuantity(500, resource.DecimalSI), "500m"},
		{"Cores", resource.NewMilliQuantity(1500, resource.DecimalSI), "1.50"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := FormatCPU(tc.qty)
			if got != tc.want {
				t.Fatalf("FormatCPU(%v) = %q, want %q", tc.qty, got, tc.want)
			}
		})
	}
}

func TestFormatMemory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		qty  *resource.Quantity
		want string
	}{
		{"NilQuantity", nil, "-"},
		{"Zero", resource.NewQuantity(0, resource.BinarySI), "-"},
		{"Bytes", resource.NewQuantity(512, resource.BinarySI), "512"},
		{"Ki", resource.NewQuantity(2*1024, resource.BinarySI), "2Ki"},
		{"Mi", resource.NewQuantity(64*1024*1024, resource.BinarySI), "64Mi"},
		{"Gi", resource.NewQuantity(2*1024*1024*1024, resource.BinarySI), "2.00Gi"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := FormatMemory(tc.qty)
			if got != tc.want {
				t.Fatalf("FormatMemory(%v) = %q, want %q", tc.qty, got, tc.want)
			}
		})
	}
}

func TestFormatAge(t *testing.T) {
	t.Parallel()

	require.Equal(t, "-", FormatAge(time.Time{}))
	require.Equal(t, "10h", FormatAge(time.Now().Add(-10*time.Hour-time.Minute)))
	require.Equal(t, "0s", FormatAge(time.Now().Add(time.Hour)))
}

func TestTitleCase(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", TitleCase(""))
	require.Equal(t, "Bound", TitleCase("bound"))
	require.Equal(t, "Not Ready", TitleCase("not_ready"))
}
