package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

// PaymentGateway creates payment orders with the external provider. Amounts
// are in paise, the provider's smallest currency unit.
type PaymentGateway interface {
	CreateOrder(amountPaise int64, receipt string) (map[string]interface{}, error)
}

// RazorpayGateway implements PaymentGateway against razorpay
type RazorpayGateway struct {
	client *razorpay.Client
}

// NewRazorpayGateway builds a gateway from API credentials
func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens an order with razorpay
func (g *RazorpayGateway) CreateOrder(amountPaise int64, receipt string) (map[string]interface{}, error) {
	return g.client.Order.Create(map[string]interface{}{
		"amount":   amountPaise,
		"currency": "INR",
		"receipt":  receipt,
	}, nil)
}

// Payment exported for testing purposes
type Payment struct {
	DB          databases.FineDatabase
	Gateway     PaymentGateway
	KeySecret   string
	PaymentMode string
}

// CreateOrderHandler opens a gateway order for the given amount. Only live
// when PAYMENT_MODE=gateway.
func (p Payment) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if p.PaymentMode != config.PaymentModeGateway {
		config.ErrorStatus("gateway payment is disabled", http.StatusBadRequest, w,
			fmt.Errorf("payment mode is %s", p.PaymentMode))
		return
	}
	if p.Gateway == nil {
		config.ErrorStatus("payment gateway is not configured", http.StatusInternalServerError, w,
			fmt.Errorf("no gateway client"))
		return
	}

	var req models.PaymentOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid order payload", http.StatusBadRequest, w, err)
		return
	}

	// rupees to paise; rounded, a plain truncation drops a paisa on
	// amounts like 1.15 whose float form sits just below the cent
	order, err := p.Gateway.CreateOrder(int64(math.Round(req.Amount*100)), "rcpt_"+uuid.NewString())
	if err != nil {
		config.ErrorStatus("failed to create payment order", http.StatusBadGateway, w, err)
		return
	}

	json.NewEncoder(w).Encode(order)
}

// VerifyPaymentHandler completes a gateway payment. The client relays the
// gateway callback (order id, payment id, signature); the signature is
// recomputed server-side with the key secret and must match before any state
// changes. The paid flip is conditional on Unpaid, making verification
// idempotent-safe: a replayed callback conflicts instead of re-paying.
func (p Payment) VerifyPaymentHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	caller, _ := api.UserFromContext(r.Context())

	if p.PaymentMode != config.PaymentModeGateway {
		config.ErrorStatus("gateway payment is disabled", http.StatusBadRequest, w,
			fmt.Errorf("payment mode is %s", p.PaymentMode))
		return
	}

	var req models.PaymentVerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request", http.StatusBadRequest, w, err)
		return
	}
	if err := models.Validate(req); err != nil {
		config.ErrorStatus("invalid verification payload", http.StatusBadRequest, w, err)
		return
	}

	if !verifySignature(req.OrderID, req.PaymentID, req.Signature, p.KeySecret) {
		config.ErrorStatus("payment signature verification failed", http.StatusBadRequest, w,
			fmt.Errorf("signature mismatch for order %s", req.OrderID))
		return
	}

	oid, err := primitive.ObjectIDFromHex(req.FineID)
	if err != nil {
		config.ErrorStatus("invalid fine id", http.StatusBadRequest, w, err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	fine, err := p.DB.FindOne(ctx, bson.M{"_id": oid})
	if err != nil {
		config.ErrorStatus("fine not found", http.StatusNotFound, w, err)
		return
	}
	if fine.Details.User != caller.ID {
		config.ErrorStatus("fine belongs to another user", http.StatusForbidden, w,
			fmt.Errorf("fine %s is not owned by caller", req.FineID))
		return
	}

	update := bson.M{"$set": bson.M{
		"fine.status":    models.FineStatusPaid,
		"fine.paymentId": req.PaymentID,
	}}
	res, err := p.DB.UpdateOne(ctx, bson.M{"_id": oid, "fine.status": models.FineStatusUnpaid}, update)
	if err != nil {
		config.ErrorStatus("failed to update fine", http.StatusInternalServerError, w, err)
		return
	}
	if res.ModifiedCount == 0 {
		config.ErrorStatus("fine is already paid", http.StatusConflict, w,
			fmt.Errorf("fine %s is not unpaid", req.FineID))
		return
	}

	zap.S().Infow("payment verified",
		"fineId", req.FineID,
		"orderId", req.OrderID,
		"paymentId", req.PaymentID,
	)
	json.NewEncoder(w).Encode(map[string]string{"message": "Payment verified successfully."})
}

// verifySignature recomputes the gateway signature, HMAC-SHA256 over
// "orderID|paymentID" keyed with the API secret
func verifySignature(orderID, paymentID, signature, secret string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(h.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
