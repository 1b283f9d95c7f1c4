package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/trollianspace/mastodon/db"
	"github.com/trollianspace/mastodon/domain"
	"github.com/trollianspace/mastodon/publish"
	"github.com/trollianspace/mastodon/util"
	"github.com/trollianspace/mastodon/web"
	"github.com/trollianspace/mastodon/worker"
)

func main() {
	conf, err := util.ReadConf()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database, err := db.Open(conf.Conf.DbFile)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	log.Info("Running database migrations...")
	if err := database.Migrate(); err != nil {
		log.Fatal(err)
	}
	log.Info("Database migrations complete")

	if len(os.Args) > 2 && os.Args[1] == "create-account" {
		if err := createAccount(database, os.Args[2]); err != nil {
			log.Fatal(err)
		}
		return
	}

	tasks := worker.New(database, conf)
	tasks.Start()
	defer tasks.Stop()

	publisher := &publish.Publisher{
		Store:       database,
		Idempotency: publish.NewMemoryIdempotencyStore(),
		Tasks:       tasks,
		Tracker:     database,
		Languages:   publish.TagTable{},
		Extractors: []publish.Extractor{
			&publish.MentionExtractor{Store: database},
			&publish.HashtagExtractor{Store: database},
		},
		Conf: conf,
	}

	server := web.NewServer(database, publisher, conf)
	startServing(server)
}

func startServing(server *web.Server) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatal(err)
		}
	}()

	<-done
	log.Info("Stopping server")
}

// createAccount provisions a local account and prints its API token.
func createAccount(database *db.DB, username string) error {
	keys := util.GeneratePemKeypair()
	acc := &domain.Account{
		Id:                uuid.New(),
		Username:          username,
		DefaultVisibility: domain.VisibilityPublic,
		DefaultLanguage:   "en",
		PublicKeyPem:      keys.Public,
		PrivateKeyPem:     keys.Private,
		AccessToken:       util.RandomString(40),
		CreatedAt:         time.Now(),
	}
	if err := database.CreateAccount(acc); err != nil {
		return err
	}
	fmt.Printf("Created account %s\n", acc.Username)
	fmt.Printf("Access token: %s\n", acc.AccessToken)
	return nil
}
