package main

import (
	"net/http"

	"history-guide/handlers"
	"history-guide/middleware"

	"github.com/gorilla/mux"
)

type routes struct {
	allowedOrigins []string
	validators     []middleware.AuthValidator
	roles          middleware.RoleResolver

	auth   *handlers.AuthHandler
	pois   *handlers.POIHandler
	rating *handlers.RatingHandler
	user   *handlers.UserHandler
	feed   http.Handler
}

// newRouter registers every route with OPTIONS so the CORS middleware can
// answer preflight requests before any auth check runs.
func newRouter(rt routes) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.ErrorMiddleware())
	r.Use(middleware.LoggingMiddleware())
	r.Use(middleware.CORSMiddleware(rt.allowedOrigins))
	r.Use(middleware.NewAuthMiddleware(rt.validators...))

	requireAdmin := middleware.RequireAdmin(rt.roles)

	// Auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", rt.auth.RegisterUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/login", rt.auth.LoginUser).Methods("POST", "OPTIONS")
	authRouter.HandleFunc("/me", rt.auth.Me).Methods("GET", "OPTIONS")

	// POI routes
	r.HandleFunc("/pois", rt.pois.ListPOIs).Methods("GET", "OPTIONS")
	r.HandleFunc("/pois/nearby", rt.pois.GetNearbyPOIs).Methods("GET", "OPTIONS")
	r.Handle("/pois/feed", rt.feed).Methods("GET", "OPTIONS")
	r.HandleFunc("/pois/{poi_id}", rt.pois.GetPOI).Methods("GET", "OPTIONS")
	r.Handle("/pois", requireAdmin(http.HandlerFunc(rt.pois.CreatePOI))).Methods("POST")
	r.Handle("/pois/{poi_id}", requireAdmin(http.HandlerFunc(rt.pois.UpdatePOI))).Methods("PUT")
	r.Handle("/pois/{poi_id}", requireAdmin(http.HandlerFunc(rt.pois.DeletePOI))).Methods("DELETE")

	r.HandleFunc("/pois/{poi_id}/rating", rt.rating.GetRating).Methods("GET", "OPTIONS")
	r.Handle("/pois/{poi_id}/rating", middleware.RequireAuth(http.HandlerFunc(rt.rating.SubmitRating))).Methods("PUT")
	r.Handle("/pois/{poi_id}/rating/me", middleware.RequireAuth(http.HandlerFunc(rt.rating.GetUserRating))).Methods("GET", "OPTIONS")
	r.Handle("/pois/{poi_id}/visited", middleware.RequireAuth(http.HandlerFunc(rt.pois.GetVisited))).Methods("GET", "OPTIONS")
	r.Handle("/pois/{poi_id}/visited/toggle", middleware.RequireAuth(http.HandlerFunc(rt.pois.ToggleVisited))).Methods("POST", "OPTIONS")

	// User routes
	userRouter := r.PathPrefix("/user").Subrouter()
	userRouter.Use(middleware.RequireAuth)
	userRouter.HandleFunc("/visited", rt.user.VisitedPOIs).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/notifications", rt.user.SetNotifications).Methods("PUT", "OPTIONS")
	userRouter.HandleFunc("/geofences", rt.user.Geofences).Methods("GET", "OPTIONS")
	userRouter.HandleFunc("/ping", rt.user.PingLocation).Methods("POST", "OPTIONS")

	return r
}
