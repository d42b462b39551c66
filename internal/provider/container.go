package provider

import (
	"github.com/Rishiupp/pettrack-api/internal/cache"
	"github.com/Rishiupp/pettrack-api/internal/config"
	"github.com/Rishiupp/pettrack-api/internal/logger"
	"github.com/Rishiupp/pettrack-api/internal/models"
	"github.com/Rishiupp/pettrack-api/internal/payment/razorpay"
	"github.com/Rishiupp/pettrack-api/internal/queue"
	"github.com/Rishiupp/pettrack-api/internal/repository"
	"github.com/Rishiupp/pettrack-api/internal/service"
)

// Container wires repositories and services for the HTTP and worker
// entry points.
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo         repository.UserRepository
	OrderRepo        repository.OrderRepository
	PaymentRepo      repository.PaymentRepository
	WebhookEventRepo repository.WebhookEventRepository
	QRCodeRepo       repository.QRCodeRepository

	// Services
	UserAuthService *service.UserAuthService
	PaymentService  *service.PaymentService
	QRService       *service.QRService
}

// NewContainer initializes the container.
func NewContainer(cfg *config.Config) *Container {
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	c.initRepositories()
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.PaymentRepo = repository.NewPaymentRepository(db)
	c.WebhookEventRepo = repository.NewWebhookEventRepository(db)
	c.QRCodeRepo = repository.NewQRCodeRepository(db)
}

func (c *Container) initServices() {
	gateway := razorpay.NewClient(&razorpay.Config{
		KeyID:         c.Config.Razorpay.KeyID,
		KeySecret:     c.Config.Razorpay.KeySecret,
		WebhookSecret: c.Config.Razorpay.WebhookSecret,
		APIBaseURL:    c.Config.Razorpay.APIBaseURL,
		TimeoutMS:     c.Config.Razorpay.TimeoutMS,
	})

	c.UserAuthService = service.NewUserAuthService(c.Config, c.UserRepo)
	c.PaymentService = service.NewPaymentService(
		c.OrderRepo,
		c.PaymentRepo,
		c.WebhookEventRepo,
		c.UserRepo,
		gateway,
		service.NewAmountPolicy(),
		c.QueueClient,
		c.Config.Order.PaymentExpireMinutes,
	)
	c.QRService = service.NewQRService(c.QRCodeRepo, c.OrderRepo)
}
