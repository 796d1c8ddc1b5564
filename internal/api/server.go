package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/limbo/cadence/internal/service"
)

type Server struct {
	mx              *chi.Mux
	routesOnce      sync.Once
	userService     service.UserServiceI
	habitsService   service.HabitsServiceI
	trackingService service.TrackingServiceI
	statsService    service.StatsServiceI
	jwtService      JWTServiceI
	loc             *time.Location
}

type ServicesList struct {
	UserService     service.UserServiceI
	HabitsService   service.HabitsServiceI
	TrackingService service.TrackingServiceI
	StatsService    service.StatsServiceI
	JwtService      JWTServiceI
	Location        *time.Location
}

func New(servicesOptions *ServicesList) *Server {
	loc := servicesOptions.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Server{
		mx:              chi.NewMux(),
		userService:     servicesOptions.UserService,
		habitsService:   servicesOptions.HabitsService,
		trackingService: servicesOptions.TrackingService,
		statsService:    servicesOptions.StatsService,
		jwtService:      servicesOptions.JwtService,
		loc:             loc,
	}
}

// configureRoutes mounts the route tree once. chi panics on Use after the
// first route is mounted, so repeated Run/Handler calls must not re-mount.
func (s *Server) configureRoutes() {
	s.routesOnce.Do(s.mountRoutes)
}

func (s *Server) mountRoutes() {
	s.mx.Use(s.RequestIDMiddleware)
	s.mx.Use(s.SettingUpLoggerMiddleware)
	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.Register)
		r.Post("/auth/login", s.Login)
		r.Group(func(r chi.Router) {
			r.Use(s.AuthMiddleware)
			r.Use(s.LoggerExtensionMiddleware)
			r.Delete("/account", s.DeleteAccount)

			r.Get("/habits", s.GetHabits)
			r.Post("/habits", s.CreateHabit)
			r.Get("/habits/{id}", s.GetHabit)
			r.Patch("/habits/{id}", s.UpdateHabit)
			r.Delete("/habits/{id}", s.DeleteHabit)
			r.Post("/habits/{id}/archive", s.ArchiveHabit)

			r.Get("/habits/{id}/rules", s.GetRules)
			r.Post("/habits/{id}/rules", s.AddRule)

			r.Post("/habits/{id}/toggle", s.Toggle)
			r.Post("/habits/{id}/skip", s.Skip)
			r.Post("/habits/{id}/unskip", s.Unskip)
			r.Post("/habits/{id}/duration", s.LogDuration)
			r.Post("/habits/{id}/quantity", s.LogQuantity)

			r.Get("/habits/{id}/day", s.DayStatus)
			r.Get("/habits/{id}/history", s.History)
			r.Get("/habits/{id}/streaks", s.Streaks)
			r.Get("/habits/{id}/score", s.Score)
			r.Get("/habits/{id}/next-due", s.NextDue)
		})
	})
}

func (s *Server) Run(addr string) error {
	s.configureRoutes()
	return http.ListenAndServe(addr, s.mx)
}

// Handler exposes the configured router, used by the handler tests.
func (s *Server) Handler() http.Handler {
	s.configureRoutes()
	return s.mx
}
