package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/healing-center/internal/config"
	"github.com/iliyamo/healing-center/internal/database"
	"github.com/iliyamo/healing-center/internal/handler"
	"github.com/iliyamo/healing-center/internal/middleware"
	"github.com/iliyamo/healing-center/internal/queue"
	"github.com/iliyamo/healing-center/internal/repository"
	"github.com/iliyamo/healing-center/internal/router"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the rate limiter and the response cache. Both middlewares
	// fail open, so a nil client only disables them.
	rdb := config.NewRedisClient()

	e := echo.New()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())
	e.Use(echomw.CORS())
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	services := repository.NewServiceRepo(db)
	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)
	courses := repository.NewCourseRepo(db)
	enrollments := repository.NewEnrollmentRepo(db)
	subscriptions := repository.NewSubscriptionRepo(db)
	payments := repository.NewPaymentRepo(db)
	coupons := repository.NewCouponRepo(db)
	marketing := repository.NewMarketingRepo(db)

	auth := handler.NewAuthHandler(cfg, users, tokens)
	catalog := handler.NewCatalogHandler(cfg, services, slots, bookings)
	booking := handler.NewBookingHandler(cfg, bookings, services, users, payments)
	course := handler.NewCourseHandler(cfg, courses, enrollments, subscriptions, payments)
	membership := handler.NewMembershipHandler(cfg, subscriptions, payments, enrollments, users)
	coupon := handler.NewCouponHandler(cfg, coupons)
	market := handler.NewMarketingHandler(cfg, marketing)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret)
	router.RegisterCatalog(e, catalog, cfg.JWTSecret, cache)
	router.RegisterBookings(e, booking, cfg.JWTSecret)
	router.RegisterCourses(e, course, cfg.JWTSecret)
	router.RegisterMembership(e, membership, cfg.JWTSecret, cache)
	router.RegisterCoupons(e, coupon, cfg.JWTSecret)
	router.RegisterMarketing(e, market)
	router.RegisterAdmin(e, cfg.JWTSecret, catalog, booking, course, membership, coupon, market)

	// Notification consumer runs for the lifetime of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
