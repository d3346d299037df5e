package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Hans-Rafael/glup-water-reminder/common/database"
	mqttcommon "github.com/Hans-Rafael/glup-water-reminder/common/mqtt"
	rediscommon "github.com/Hans-Rafael/glup-water-reminder/common/redis"
	"github.com/Hans-Rafael/glup-water-reminder/internal/clock"
	"github.com/Hans-Rafael/glup-water-reminder/internal/config"
	"github.com/Hans-Rafael/glup-water-reminder/internal/consumer"
	"github.com/Hans-Rafael/glup-water-reminder/internal/notifier"
	"github.com/Hans-Rafael/glup-water-reminder/internal/reminder"
	"github.com/Hans-Rafael/glup-water-reminder/internal/repository"
	"github.com/Hans-Rafael/glup-water-reminder/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// ReminderService 饮水提醒服务（整合各层）
type ReminderService struct {
	config      *config.Config
	redisClient *redis.Client
	db          *sql.DB            // DB_ENABLED=false 时为 nil
	mqttClient  *mqttcommon.Client // MQTT_ENABLED=false 时为 nil
	logger      *zap.Logger

	runtime    *reminder.Runtime
	controller *Controller
	consumer   *consumer.ActionConsumer
}

// NewReminderService 创建提醒服务
func NewReminderService(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ReminderService, error) {
	s := &ReminderService{config: cfg, logger: logger}

	// 1. 连接 Redis（设置存储、动作流、stream 网关）
	s.redisClient = rediscommon.NewRedisClient(&cfg.Redis)
	if err := rediscommon.Ping(ctx, s.redisClient); err != nil {
		s.closeConnections()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 2. 饮水记录
	var drinks repository.DrinkLog
	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			s.closeConnections()
			return nil, err
		}
		s.db = db
		repo := repository.NewDrinkEventsRepository(db, cfg.UserID, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.closeConnections()
			return nil, err
		}
		drinks = repo
	} else {
		logger.Warn("Database disabled, drink history is kept in memory only")
		drinks = repository.NewMemoryDrinkLog(cfg.UserID)
	}

	// 3. 前台提醒展示与反馈
	var presenter reminder.Presenter
	var feedback reminder.Feedback
	if cfg.MQTTEnabled {
		client, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			s.closeConnections()
			return nil, err
		}
		s.mqttClient = client
		device := notifier.NewDevicePublisher(client, cfg.UserID)
		presenter, feedback = device, device
	} else {
		lp := notifier.NewLogPresenter(logger)
		presenter, feedback = lp, lp
	}

	// 4. 系统通知网关
	gateway, err := s.newGateway()
	if err != nil {
		s.closeConnections()
		return nil, err
	}

	// 5. 状态机、控制器、动作消费者
	clk := clock.Real()
	s.runtime = reminder.NewRuntime(clk, presenter, feedback, drinks, logger)
	s.controller = NewController(
		store.NewRedisSettingsStore(s.redisClient, cfg.UserID),
		drinks,
		gateway,
		s.runtime,
		clk,
		cfg.Reminder.HorizonDays,
		logger,
	)
	s.consumer = consumer.NewActionConsumer(consumer.Options{
		Stream:   cfg.Actions.Stream,
		Group:    cfg.Actions.Group,
		Consumer: cfg.Actions.Consumer,
	}, s.redisClient, s.controller, logger)

	return s, nil
}

func (s *ReminderService) newGateway() (notifier.Gateway, error) {
	switch s.config.Notify.Gateway {
	case config.GatewayStream:
		return notifier.NewStreamGateway(s.redisClient, s.config.Notify.Stream, s.config.UserID), nil
	case config.GatewayMQTT:
		if s.mqttClient == nil {
			return nil, fmt.Errorf("mqtt gateway requires an MQTT connection")
		}
		return notifier.NewMQTTGateway(s.mqttClient, s.config.UserID), nil
	case config.GatewayHTTP:
		return notifier.NewHTTPGateway(s.config.Notify.PushRelayURL, s.config.UserID), nil
	default:
		return nil, fmt.Errorf("unknown notification gateway %q", s.config.Notify.Gateway)
	}
}

// Controller 设置与提醒控制器
func (s *ReminderService) Controller() *Controller {
	return s.controller
}

// Start 加载设置、启动动作消费者，并定时重新评估清醒窗口；ctx 取消时返回
func (s *ReminderService) Start(ctx context.Context) error {
	s.logger.Info("Starting reminder service",
		zap.String("user_id", s.config.UserID),
		zap.String("notify_gateway", s.config.Notify.Gateway),
		zap.Duration("refresh_interval", s.config.Reminder.RefreshInterval),
	)

	plan, err := s.controller.Reload(ctx)
	if err != nil {
		return fmt.Errorf("failed to load initial settings: %w", err)
	}
	s.logger.Info("Initial reminder plan ready",
		zap.Int("interval_minutes", plan.IntervalMinutes),
		zap.Int("glasses_needed", plan.GlassesNeeded),
	)

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- s.consumer.Start(ctx)
	}()

	ticker := time.NewTicker(s.config.Reminder.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-consumerErr:
			if err != nil {
				return fmt.Errorf("action consumer stopped: %w", err)
			}
			return nil
		case <-ticker.C:
			s.controller.Refresh(ctx)
		}
	}
}

// Stop 停止服务
func (s *ReminderService) Stop() error {
	s.logger.Info("Stopping reminder service")
	if s.runtime != nil {
		s.runtime.Close()
	}
	s.closeConnections()
	return nil
}

func (s *ReminderService) closeConnections() {
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.Error(err))
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis", zap.Error(err))
		}
	}
}
