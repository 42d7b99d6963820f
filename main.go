package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/cors"

	"vibin_matchcore/config"
	"vibin_matchcore/controllers"
	"vibin_matchcore/logging"
	"vibin_matchcore/media"
	"vibin_matchcore/models"
	"vibin_matchcore/notify"
	"vibin_matchcore/repository"
	"vibin_matchcore/repository/dynamo"
	"vibin_matchcore/repository/memory"
	"vibin_matchcore/routes"
	"vibin_matchcore/services"
	"vibin_matchcore/socket"
)

type stores struct {
	profiles     repository.ProfileRepository
	interactions repository.InteractionRepository
	matches      repository.MatchRepository
	chats        repository.ChatRepository
	messages     repository.MessageRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Caller: cfg.Log.Caller,
	})

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load AWS configuration")
	}

	st := openStores(cfg, awsCfg)

	policy := services.Policy{
		EditWindow:              cfg.Chat.EditWindow,
		DeleteForEveryoneWindow: cfg.Chat.DeleteForEveryoneWindow,
		OneViewTTL:              cfg.Chat.OneViewTTL,
		EditHistoryCap:          cfg.Chat.EditHistoryCap,
		DeliveryDelay:           cfg.Chat.DeliveryDelay,
		DefaultPageSize:         cfg.Chat.DefaultPageSize,
		MaxPageSize:             cfg.Chat.MaxPageSize,
	}

	// Initialize Services
	matchService := services.NewMatchService(st.matches, st.profiles)
	matchService.SetPolicy(policy)
	interactionService := services.NewInteractionService(st.interactions, st.profiles, matchService)
	chatService := services.NewChatService(st.chats, st.matches, st.messages)
	chatService.SetPolicy(policy)
	messageService := services.NewMessageService(st.messages, st.chats, st.matches, st.profiles)
	messageService.SetPolicy(policy)

	hub := socket.NewHub(chatService)
	dispatcher := notify.NewDispatcher(hub)
	interactionService.SetNotifier(dispatcher)
	messageService.SetNotifier(dispatcher)
	messageService.SetBroadcaster(hub)

	var signer controllers.MediaSigner
	if cfg.Media.Bucket != "" {
		store := media.NewStore(s3.NewFromConfig(awsCfg), cfg.Media.Bucket, cfg.Media.UploadPrefix, cfg.Media.URLTTL)
		messageService.SetMediaVerifier(store)
		signer = store
	} else {
		logging.Warn().Msg("no media bucket configured; media uploads are disabled")
	}

	r := routes.NewRouter(routes.Services{
		Interactions: interactionService,
		Matches:      matchService,
		Chats:        chatService,
		Messages:     messageService,
		Media:        signer,
	}, cfg.Server.RequestTimeout)
	r.PathPrefix("/socket.io/").Handler(hub.Handler())

	go func() {
		if err := hub.Serve(); err != nil {
			logging.Error().Err(err).Msg("socket server stopped")
		}
	}()

	// Add CORS middleware
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", controllers.UserHandleHeader, controllers.CorrelationHeader},
		ExposedHeaders:   []string{controllers.CorrelationHeader},
		AllowCredentials: true,
	}).Handler(r)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Int("port", cfg.Server.Port).Str("store", cfg.Store.Driver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logging.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http shutdown failed")
	}
	if err := hub.Close(); err != nil {
		logging.Error().Err(err).Msg("socket shutdown failed")
	}
}

func openStores(cfg *config.Config, awsCfg aws.Config) stores {
	if cfg.Store.Driver == config.DriverMemory {
		profiles := memory.NewProfileRepo()
		for _, user := range cfg.Store.SeedUsers {
			profiles.Save(models.UserProfile{UserHandle: user, Name: user, AccountStatus: models.AccountActive})
		}
		logging.Warn().Int("seedUsers", len(cfg.Store.SeedUsers)).Msg("using in-memory store; data is lost on restart")
		return stores{
			profiles:     profiles,
			interactions: memory.NewInteractionRepo(),
			matches:      memory.NewMatchRepo(),
			chats:        memory.NewChatRepo(),
			messages:     memory.NewMessageRepo(),
		}
	}

	ds := dynamo.NewDynamoService(dynamo.NewClient(awsCfg, cfg.AWS.Endpoint))
	logging.Info().Str("region", cfg.AWS.Region).Msg("DynamoDB client initialized")
	return stores{
		profiles:     dynamo.NewProfileRepo(ds, cfg.Tables.Users, cfg.Tables.Blocks),
		interactions: dynamo.NewInteractionRepo(ds, cfg.Tables.Interactions),
		matches:      dynamo.NewMatchRepo(ds, cfg.Tables.Matches),
		chats:        dynamo.NewChatRepo(ds, cfg.Tables.Chats),
		messages:     dynamo.NewMessageRepo(ds, cfg.Tables.Messages),
	}
}
