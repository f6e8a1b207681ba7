package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/ashish-0314/Traffic-Management/api"
	"github.com/ashish-0314/Traffic-Management/api/scheduler"
	"github.com/ashish-0314/Traffic-Management/config"
	"github.com/ashish-0314/Traffic-Management/databases"
	"github.com/ashish-0314/Traffic-Management/models"
)

// App stores the router and db connection so it can be reused for the server
type App struct {
	Router    *mux.Router
	Config    *config.Config
	Scheduler *scheduler.Scheduler

	dbHelper databases.DatabaseHelper
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()

	auth := api.Auth{Secret: []byte(a.Config.JWTSecret)}

	userDB := databases.NewUserDatabase(a.dbHelper)
	incidentDB := databases.NewIncidentDatabase(a.dbHelper)
	fineDB := databases.NewFineDatabase(a.dbHelper)
	notificationDB := databases.NewNotificationDatabase(a.dbHelper)

	var uploader Uploader
	if a.Config.CloudinaryURL != "" {
		cld, err := NewCloudinaryUploader(a.Config.CloudinaryURL, "traffic")
		if err != nil {
			zap.S().Errorw("cloudinary disabled", "error", err)
		} else {
			uploader = cld
		}
	}

	var gateway PaymentGateway
	if a.Config.RazorpayKeyID != "" && a.Config.RazorpayKeySecret != "" {
		gateway = NewRazorpayGateway(a.Config.RazorpayKeyID, a.Config.RazorpayKeySecret)
	}

	authHandler := Auth{DB: userDB, Auth: auth}
	userHandler := User{DB: userDB, Uploader: uploader}
	incidentHandler := Incident{
		DB:       incidentDB,
		Uploader: uploader,
		Notifier: Notifier{
			UDB:       userDB,
			NDB:       notificationDB,
			RadiusKm:  a.Config.NotifyRadiusKm,
			Broadcast: a.Config.NotifyBroadcast,
		},
	}
	fineHandler := Fine{DB: fineDB, UDB: userDB, NDB: notificationDB, PaymentMode: a.Config.PaymentMode}
	paymentHandler := Payment{
		DB:          fineDB,
		Gateway:     gateway,
		KeySecret:   a.Config.RazorpayKeySecret,
		PaymentMode: a.Config.PaymentMode,
	}
	notificationHandler := Notification{DB: notificationDB}
	signatureHandler := UploadSignatureHandler{
		UploadPreset: a.Config.CloudinaryUploadPreset,
		APISecret:    a.Config.CloudinaryAPISecret,
	}

	// healthcheck
	r.HandleFunc("/health", healthCheckHandler)

	s := r.PathPrefix("/api/v1").Subrouter()

	// public auth routes, rate limited against credential stuffing
	limited := api.Limit(5, 10, 3*time.Minute)
	s.Handle("/auth/register", limited(http.HandlerFunc(authHandler.RegisterHandler))).Methods("POST")
	s.Handle("/auth/login", limited(http.HandlerFunc(authHandler.LoginHandler))).Methods("POST")

	private := func(op api.Operation, h http.HandlerFunc) http.Handler {
		return auth.Middleware(api.Authorize(op, h))
	}

	// profile; /users/profile must register before /users/{user_id}
	s.Handle("/users/profile", private(api.OpProfileRead, userHandler.ProfileHandler)).Methods("GET")
	s.Handle("/users/profile", private(api.OpProfileUpdate, userHandler.UpdateProfileHandler)).Methods("PUT")
	s.Handle("/users/profile/password", private(api.OpPasswordChange, userHandler.ChangePasswordHandler)).Methods("PUT")

	// user administration
	s.Handle("/users", private(api.OpUserList, userHandler.ListUsersHandler)).Methods("GET")
	s.Handle("/users/{user_id}/approve", private(api.OpUserApprove, userHandler.ApproveUserHandler)).Methods("PUT")
	s.Handle("/users/{user_id}/reject", private(api.OpUserReject, userHandler.RejectUserHandler)).Methods("PUT")

	// incidents
	s.Handle("/incidents", private(api.OpIncidentCreate, incidentHandler.CreateIncidentHandler)).Methods("POST")
	s.Handle("/incidents", private(api.OpIncidentList, incidentHandler.ListIncidentsHandler)).Methods("GET")
	s.Handle("/incidents/stats", private(api.OpIncidentStats, incidentHandler.IncidentStatsHandler)).Methods("GET")
	s.Handle("/incidents/{incident_id}/status", private(api.OpIncidentUpdateStatus, incidentHandler.UpdateIncidentStatusHandler)).Methods("PATCH")

	// fines; the fixed paths must register before /fines/{fine_id}/pay
	s.Handle("/fines", private(api.OpFineIssue, fineHandler.IssueFineHandler)).Methods("POST")
	s.Handle("/fines", private(api.OpFineListAll, fineHandler.ListFinesHandler)).Methods("GET")
	s.Handle("/fines/myfines", private(api.OpFineListMine, fineHandler.MyFinesHandler)).Methods("GET")
	s.Handle("/fines/stats", private(api.OpFineStats, fineHandler.FineStatsHandler)).Methods("GET")
	s.Handle("/fines/payment/order", private(api.OpPaymentOrder, paymentHandler.CreateOrderHandler)).Methods("POST")
	s.Handle("/fines/payment/verify", private(api.OpPaymentVerify, paymentHandler.VerifyPaymentHandler)).Methods("POST")
	s.Handle("/fines/{fine_id}/pay", private(api.OpFinePay, fineHandler.PayFineHandler)).Methods("PATCH")

	// notifications; read-all must register before {notification_id}/read
	s.Handle("/notifications", private(api.OpNotificationList, notificationHandler.ListNotificationsHandler)).Methods("GET")
	s.Handle("/notifications/read-all", private(api.OpNotificationReadAll, notificationHandler.MarkAllReadHandler)).Methods("PATCH")
	s.Handle("/notifications/{notification_id}/read", private(api.OpNotificationRead, notificationHandler.MarkReadHandler)).Methods("PATCH")

	// uploads
	s.Handle("/uploads/signature", private(api.OpUploadSignature, http.HandlerFunc(signatureHandler.GenerateSignature))).Methods("POST")

	return r
}

// Initialize is invoked by main to connect with the database and create a
// router
func (a *App) Initialize() error {
	client, err := databases.NewClient(a.Config)
	if err != nil {
		// if the DB doesn't work, nothing works
		zap.S().With(err).Error("failed to create new database client")
		return err
	}

	if err = client.Connect(); err != nil {
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	zap.S().Info("connected to database")

	a.dbHelper = databases.NewDatabase(a.Config, client)

	ctx, cancel := api.WithQueryTimeout(nil)
	defer cancel()
	if err := databases.EnsureIndexes(ctx, a.dbHelper); err != nil {
		zap.S().With(err).Error("failed to ensure indexes")
		return err
	}

	sched, err := scheduler.New(
		databases.NewFineDatabase(a.dbHelper),
		databases.NewNotificationDatabase(a.dbHelper),
	)
	if err != nil {
		zap.S().With(err).Error("failed to create scheduler")
		return err
	}
	sched.Start()
	a.Scheduler = sched

	a.Router = a.New()
	return nil
}

// healthCheckHandler will return the current alive status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.HealthCheckResponse{Alive: true})
}
