package jobs

import (
	"errors"
	"log"

	"github.com/marketformation/mf-backend/database"
	"github.com/marketformation/mf-backend/ledger"
	"github.com/marketformation/mf-backend/models"
)

// RunAutoPayouts sweeps trainers who opted into automatic payouts and files a
// withdrawal request for their full available balance once it clears the
// minimum payout threshold.
func RunAutoPayouts(svc *ledger.Service) {
	log.Println("Running job: RunAutoPayouts...")

	var profiles []models.TrainerBanking
	err := database.DB.Where("auto_payout = ?", true).Find(&profiles).Error
	if err != nil {
		log.Printf("Error loading auto-payout profiles: %v", err)
		return
	}

	requested := 0
	for _, profile := range profiles {
		if !profile.HasBanking() {
			continue
		}

		summary, err := svc.EnsureSummary(profile.TrainerID)
		if err != nil {
			log.Printf("Error loading summary for trainer %s: %v", profile.TrainerID, err)
			continue
		}
		if summary.AvailableCents < svc.MinPayoutCents() {
			continue
		}

		_, err = svc.RequestWithdrawal(profile.TrainerID, summary.AvailableCents)
		if err != nil {
			// A sale or manual withdrawal racing the sweep can shrink the
			// balance between the read and the request; skip, next run
			// catches up.
			if errors.Is(err, ledger.ErrInsufficientBalance) {
				continue
			}
			log.Printf("Error requesting auto payout for trainer %s: %v", profile.TrainerID, err)
			continue
		}
		requested++
	}

	if requested > 0 {
		log.Printf("Filed %d automatic payout request(s).", requested)
	} else {
		log.Println("No trainers eligible for automatic payout.")
	}
}
