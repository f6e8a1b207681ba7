package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/models"
)

// Payment modes selecting which fine-payment path is live. The direct mode
// lets the owning user flip their fine to Paid; the gateway mode requires a
// verified payment callback. The inactive path is rejected outright.
const (
	PaymentModeDirect  = "direct"
	PaymentModeGateway = "gateway"
)

// DefaultNotifyRadiusKm is the accident fan-out radius when none is configured
const DefaultNotifyRadiusKm = 20.0

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	JWTSecret    string

	CloudinaryURL          string
	CloudinaryUploadPreset string
	CloudinaryAPISecret    string

	RazorpayKeyID     string
	RazorpayKeySecret string
	PaymentMode       string

	NotifyRadiusKm  float64
	NotifyBroadcast bool
}

// New sets up all config related services
func New() *Config {
	// .env is optional; real deployments configure through the environment
	_ = godotenv.Load()

	//setup zap logger and replace default logger
	logger := zap.NewExample()
	defer logger.Sync()
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: os.Getenv("DB_NAME"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         os.Getenv("PORT"),
		JWTSecret:    os.Getenv("JWT_SECRET"),

		CloudinaryURL:          os.Getenv("CLOUDINARY_URL"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),

		RazorpayKeyID:     os.Getenv("RAZORPAY_KEY_ID"),
		RazorpayKeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
		PaymentMode:       paymentMode(os.Getenv("PAYMENT_MODE")),

		NotifyRadiusKm:  envFloat("NOTIFY_RADIUS_KM", DefaultNotifyRadiusKm),
		NotifyBroadcast: envBool("NOTIFY_BROADCAST", false),
	}
}

func paymentMode(v string) string {
	if v == PaymentModeDirect {
		return PaymentModeDirect
	}
	return PaymentModeGateway
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		zap.S().Warnf("invalid %s %q, using default %v", key, v, fallback)
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		zap.S().Warnf("invalid %s %q, using default %v", key, v, fallback)
		return fallback
	}
	return b
}

// ErrorStatus is a useful function that will log, write http headers and body
// for a given message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	zap.S().With(err).Error(message)
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: models.MessageError{
		Message: message,
		Error:   errMsg,
	}})
	w.WriteHeader(httpStatusCode)
	w.Write(b)
}
