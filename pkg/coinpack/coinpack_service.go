package coinpack

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/entities"
	"github.com/pocketmint/backend/internal/utils/mailing"
	"github.com/pocketmint/backend/pkg/ledger"
	"github.com/pocketmint/backend/pkg/payment"
)

type (
	CoinPackService interface {
		GetPacks(ctx context.Context) ([]*domain.CoinPackResponse, error)
		Initiate(ctx context.Context, userID, packID uuid.UUID, email string) (*domain.InitiateCoinPackPurchaseResponse, error)
		// HandleNotification processes a gateway confirmation. Safe to call
		// repeatedly with the same notification: the credit is keyed on the
		// payment reference.
		HandleNotification(ctx context.Context, notification domain.PaymentNotification) error
		Cancel(ctx context.Context, purchaseID, userID uuid.UUID) error
		// ResumePendingCredits credits purchases confirmed before a restart
		// that never reached Credited. Runs on a schedule.
		ResumePendingCredits(ctx context.Context)
	}

	coinPackService struct {
		coinPackRepository CoinPackRepository
		ledgerService      ledger.LedgerService
		paymentService     payment.PaymentService
	}
)

func NewCoinPackService(coinPackRepository CoinPackRepository, ledgerService ledger.LedgerService, paymentService payment.PaymentService) CoinPackService {
	return &coinPackService{
		coinPackRepository: coinPackRepository,
		ledgerService:      ledgerService,
		paymentService:     paymentService,
	}
}

func (s *coinPackService) GetPacks(ctx context.Context) ([]*domain.CoinPackResponse, error) {
	packs, err := s.coinPackRepository.GetPacks(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*domain.CoinPackResponse, 0, len(packs))
	for _, pack := range packs {
		result = append(result, &domain.CoinPackResponse{
			ID:          pack.ID.String(),
			Name:        pack.Name,
			Amount:      pack.Amount,
			Price:       pack.Price,
			Currency:    pack.Currency,
			Description: pack.Description,
			ImageURL:    pack.ImageURL,
			IsPopular:   pack.IsPopular,
		})
	}
	return result, nil
}

// Initiate creates the purchase record and obtains a payment page from the
// gateway. The purchase id doubles as the gateway order id, which later comes
// back as the payment reference on the notification.
func (s *coinPackService) Initiate(ctx context.Context, userID, packID uuid.UUID, email string) (*domain.InitiateCoinPackPurchaseResponse, error) {
	pack, err := s.coinPackRepository.GetPackByID(ctx, packID)
	if err != nil {
		return nil, err
	}

	purchase := &entities.CoinPackPurchase{
		ID:               uuid.New(),
		UserID:           userID,
		CoinPackID:       pack.ID,
		Email:            email,
		GrossAmount:      pack.Price,
		Status:           entities.CoinPackPurchaseInitiated,
		Timestamp: entities.Timestamp{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	purchase.PaymentReference = purchase.ID.String()

	if err := s.coinPackRepository.CreatePurchase(ctx, purchase); err != nil {
		return nil, err
	}

	resp, err := s.paymentService.CreateTransaction(ctx, domain.CreatePaymentRequest{
		OrderID: purchase.PaymentReference,
		Amount:  int64(math.Round(pack.Price)),
		Email:   email,
	})
	if err != nil {
		if updateErr := s.coinPackRepository.UpdatePurchaseStatus(ctx, purchase.ID, entities.CoinPackPurchaseFailed); updateErr != nil {
			log.Errorf("failed to mark purchase %s failed: %v", purchase.ID, updateErr)
		}
		return nil, domain.ErrPaymentFailed
	}

	if err := s.coinPackRepository.UpdateInvoiceURL(ctx, purchase.ID, resp.InvoiceURL); err != nil {
		log.Errorf("failed to store invoice url for purchase %s: %v", purchase.ID, err)
	}

	return &domain.InitiateCoinPackPurchaseResponse{
		PurchaseID:       purchase.ID.String(),
		PaymentReference: purchase.PaymentReference,
		InvoiceURL:       resp.InvoiceURL,
	}, nil
}

func (s *coinPackService) HandleNotification(ctx context.Context, n domain.PaymentNotification) error {
	if !s.paymentService.VerifySignature(n) {
		return domain.ErrInvalidSignature
	}

	purchase, err := s.coinPackRepository.GetPurchaseByReference(ctx, n.OrderID)
	if err != nil {
		return err
	}

	switch n.TransactionStatus {
	case "settlement", "capture":
		switch n.FraudStatus {
		case "deny":
			return s.fail(ctx, purchase)
		case "challenge":
			// Held for manual review; the gateway sends a final status later.
			return nil
		}
		return s.confirmAndCredit(ctx, purchase)
	case "deny", "cancel", "expire", "failure":
		return s.fail(ctx, purchase)
	case "pending":
		return nil
	default:
		log.Warnf("unhandled payment status %q for purchase %s", n.TransactionStatus, purchase.ID)
		return nil
	}
}

func (s *coinPackService) confirmAndCredit(ctx context.Context, purchase *entities.CoinPackPurchase) error {
	switch purchase.Status {
	case entities.CoinPackPurchaseInitiated:
		if _, err := s.coinPackRepository.TransitionPurchaseStatus(ctx, purchase.ID,
			entities.CoinPackPurchaseInitiated, entities.CoinPackPurchaseConfirmed); err != nil {
			return err
		}
	case entities.CoinPackPurchaseConfirmed:
		// restart or re-delivery; proceed to credit
	case entities.CoinPackPurchaseCredited:
		return nil
	default:
		// A settled notification for a cancelled or failed purchase means the
		// user paid after we gave up on it; never credit silently.
		log.Errorf("settlement received for purchase %s in status %s", purchase.ID, purchase.Status)
		return nil
	}

	return s.credit(ctx, purchase)
}

// credit applies the coin credit exactly once, keyed on the payment
// reference, then finalizes the purchase.
func (s *coinPackService) credit(ctx context.Context, purchase *entities.CoinPackPurchase) error {
	if purchase.CoinPack == nil {
		pack, err := s.coinPackRepository.GetPackByID(ctx, purchase.CoinPackID)
		if err != nil {
			return err
		}
		purchase.CoinPack = pack
	}

	purchaseID := purchase.ID
	result, err := s.ledgerService.Apply(ctx, ledger.ApplyParams{
		UserID:         purchase.UserID,
		Amount:         purchase.CoinPack.Amount,
		Type:           entities.TransactionPurchase,
		ReferenceType:  "coin_pack_purchase",
		ReferenceID:    &purchaseID,
		IdempotencyKey: fmt.Sprintf("coinpack:%s", purchase.PaymentReference),
		Description:    fmt.Sprintf("Purchased %s (%d coins)", purchase.CoinPack.Name, purchase.CoinPack.Amount),
	})
	if err != nil {
		return err
	}

	if err := s.coinPackRepository.MarkCredited(ctx, purchase.ID, result.TransactionID); err != nil {
		return err
	}

	if !result.Duplicate && purchase.Email != "" {
		go s.sendReceipt(purchase)
	}
	return nil
}

func (s *coinPackService) sendReceipt(purchase *entities.CoinPackPurchase) {
	body := fmt.Sprintf(
		"<p>Your purchase of <b>%s</b> is complete and %d coins have been added to your wallet.</p><p>Reference: %s</p>",
		purchase.CoinPack.Name, purchase.CoinPack.Amount, purchase.PaymentReference,
	)
	if err := mailing.SendMail(purchase.Email, "Your coins have arrived", body); err != nil {
		log.Errorf("failed to send receipt for purchase %s: %v", purchase.ID, err)
	}
}

func (s *coinPackService) fail(ctx context.Context, purchase *entities.CoinPackPurchase) error {
	if purchase.Status != entities.CoinPackPurchaseInitiated {
		return nil
	}
	_, err := s.coinPackRepository.TransitionPurchaseStatus(ctx, purchase.ID,
		entities.CoinPackPurchaseInitiated, entities.CoinPackPurchaseFailed)
	return err
}

func (s *coinPackService) Cancel(ctx context.Context, purchaseID, userID uuid.UUID) error {
	purchase, err := s.coinPackRepository.GetPurchaseByID(ctx, purchaseID)
	if err != nil {
		return err
	}
	if purchase.UserID != userID {
		return domain.ErrUserNotAllowed
	}

	applied, err := s.coinPackRepository.TransitionPurchaseStatus(ctx, purchase.ID,
		entities.CoinPackPurchaseInitiated, entities.CoinPackPurchaseCancelled)
	if err != nil {
		return err
	}
	if !applied {
		return domain.ErrPurchaseNotCancelable
	}
	return nil
}

func (s *coinPackService) ResumePendingCredits(ctx context.Context) {
	purchases, err := s.coinPackRepository.ListPurchasesByStatus(ctx, entities.CoinPackPurchaseConfirmed)
	if err != nil {
		log.Errorf("resume sweep failed to list confirmed purchases: %v", err)
		return
	}
	for _, purchase := range purchases {
		if err := s.credit(ctx, purchase); err != nil {
			log.Errorf("resume sweep failed to credit purchase %s: %v", purchase.ID, err)
		}
	}
}
