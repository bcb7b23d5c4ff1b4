package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"

	"github.com/pocketmint/backend/domain"
	"github.com/pocketmint/backend/internal/utils"
)

type (
	PaymentService interface {
		CreateTransaction(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error)
		// VerifySignature checks the gateway notification's SHA-512 signature
		// (order id + status code + gross amount + server key). Nothing in
		// the payload may be trusted before this passes.
		VerifySignature(notification domain.PaymentNotification) bool
	}

	paymentService struct {
		snapClient snap.Client
		serverKey  string
	}
)

func NewPaymentService() PaymentService {
	serverKey := utils.GetConfig("SERVER_KEY")

	env := midtrans.Sandbox
	if utils.GetConfig("IsProd") == "true" {
		env = midtrans.Production
	}

	client := snap.Client{}
	client.New(serverKey, env)

	return &paymentService{
		snapClient: client,
		serverKey:  serverKey,
	}
}

func (s *paymentService) CreateTransaction(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.OrderID,
			GrossAmt: req.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: req.Email,
		},
	}

	resp, err := s.snapClient.CreateTransaction(snapReq)
	if err != nil {
		return nil, err
	}

	return &domain.CreatePaymentResponse{
		Token:      resp.Token,
		InvoiceURL: resp.RedirectURL,
	}, nil
}

func (s *paymentService) VerifySignature(n domain.PaymentNotification) bool {
	payload := n.OrderID + n.StatusCode + n.GrossAmount + s.serverKey
	sum := sha512.Sum512([]byte(payload))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}
