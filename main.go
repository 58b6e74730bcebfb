package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/quillpub/quill/db"
	"github.com/quillpub/quill/domain"
	"github.com/quillpub/quill/util"
	"github.com/quillpub/quill/web"
)

func main() {

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	fmt.Println("Configuration: ")
	fmt.Println(util.PrettyPrint(conf))

	database, err := db.New(util.ResolveFilePath(conf.Conf.DbFile))
	if err != nil {
		log.Fatalln("Could not open the database: ", err)
	}

	if err := bootstrapAccount(database); err != nil {
		log.Fatalln("Could not bootstrap account: ", err)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler: web.Router(conf, database),
	}

	startServing(srv, conf)
}

// bootstrapAccount creates the account named in QUILL_BOOTSTRAP_USER on first
// start and logs a fresh bearer token for it.
func bootstrapAccount(database *db.DB) error {
	username := os.Getenv("QUILL_BOOTSTRAP_USER")
	if username == "" {
		return nil
	}

	if err, _ := database.ReadAccByUsername(username); err == nil {
		return nil
	}

	acc := &domain.Account{
		Id:        uuid.New(),
		Username:  username,
		CreatedAt: time.Now(),
	}
	if err := database.CreateAccount(acc); err != nil {
		return err
	}

	token := &domain.Token{
		Token:     util.SecureToken(48),
		AccountId: acc.Id,
		CreatedAt: time.Now(),
	}
	if err := database.CreateToken(token); err != nil {
		return err
	}

	log.Printf("Created account %s with token %s", username, token.Token)
	return nil
}

func startServing(srv *http.Server, conf *util.AppConfig) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("Starting %s on %s:%d", util.GetNameAndVersion(), conf.Conf.Host, conf.Conf.HttpPort)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalln(err)
		}
	}()

	<-done
	log.Println("Stopping server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer func() { cancel() }()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalln(err)
	}
}
