package notify

import (
	"strings"
	"testing"
	"time"

	"trendwatch/internal/domain"
)

func TestFormatAlert(t *testing.T) {
	alert := domain.PendingAlert{
		Alert: domain.Alert{
			Views:           3000,
			ViewsPerHour:    3000,
			AvgViewsPerHour: 1000,
			GrowthRate:      3.0,
		},
		Handle:      "nike",
		PostURL:     "https://example.com/p/abc",
		PublishedAt: time.Date(2025, 6, 1, 11, 0, 0, 0, time.UTC),
		Folder:      "sport",
	}

	message := FormatAlert(alert)

	for _, want := range []string{
		"@nike",
		"06-01 11:00",
		"sport",
		"3000",
		"+200%",
		"1000 views/hour",
		`"https://example.com/p/abc"`,
	} {
		if !strings.Contains(message, want) {
			t.Fatalf("message %q does not contain %q", message, want)
		}
	}
}

func TestFormatAlertWithoutFolder(t *testing.T) {
	alert := domain.PendingAlert{
		Alert:   domain.Alert{GrowthRate: 2.5},
		Handle:  "nike",
		PostURL: "https://example.com/p/abc",
	}

	message := FormatAlert(alert)

	if strings.Contains(message, "Folder: \n") {
		t.Fatalf("expected a placeholder for the missing folder, got %q", message)
	}

	if !strings.Contains(message, "+150%") {
		t.Fatalf("message %q does not show +150%% growth", message)
	}
}
