package jobs

import (
	"fmt"
	"log"
	"strings"
	"time"

	config "github.com/nqhuy1905/course_market/configs"
	"github.com/nqhuy1905/course_market/database"
	"github.com/nqhuy1905/course_market/notifications"
	"github.com/nqhuy1905/course_market/services"
	"github.com/nqhuy1905/course_market/utils"
)

// SendPendingPayoutDigest emails operators the list of teachers still owed
// money for the period that just closed. Scheduled for the first day of
// each month; the period is last month in the reporting timezone.
func SendPendingPayoutDigest() {
	log.Println("Running job: SendPendingPayoutDigest...")

	cfg := services.LoadRevenueConfig()
	period := utils.CanonicalPeriod(time.Now().AddDate(0, -1, 0), cfg.ReportingLocation)

	payouts, err := services.GetPendingPayouts(database.DB, period)
	if err != nil {
		log.Printf("🔥 Failed to build pending payout digest for %s: %v", period, err)
		return
	}
	if len(payouts) == 0 {
		log.Printf("No pending payouts for %s, skipping digest.", period)
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h1>Pending Payouts for %s</h1>", period)
	fmt.Fprintf(&b, "<p>%d teacher(s) have outstanding unpaid revenue:</p><ul>", len(payouts))
	for _, payout := range payouts {
		fmt.Fprintf(&b, "<li><b>%s</b> (%s): %d minor units across %d entries</li>",
			payout.TeacherName, payout.TeacherEmail, payout.UnpaidRevenueCents, payout.UnpaidEntries)
	}
	b.WriteString("</ul><p>Settle them from the admin payout dashboard.</p>")

	adminEmail := config.Config("ADMIN_EMAIL")
	if adminEmail == "" {
		log.Println("⚠️ ADMIN_EMAIL not configured, cannot send payout digest.")
		return
	}

	notifications.SendEmail(config.Config("ADMIN_FULL_NAME"), adminEmail,
		fmt.Sprintf("Pending payouts for %s", period), b.String())
}
