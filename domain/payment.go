package domain

type (
	CreatePaymentRequest struct {
		OrderID string
		Amount  int64
		Email   string
	}

	CreatePaymentResponse struct {
		Token      string
		InvoiceURL string
	}
)
