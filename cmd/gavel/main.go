package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/intrntsrfr/gavel"
	"github.com/intrntsrfr/meido/pkg/utils"
)

func main() {
	cfg := utils.NewConfig()
	c := loadConfig(cfg, "./config.json")

	db, err := openDatabase(c.DBPath)
	if err != nil {
		panic(err)
	}
	defer db.Close()

	bot := gavel.NewBot(cfg, db)
	defer bot.Close()

	if err := bot.Run(context.Background()); err != nil {
		panic(err)
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	<-sc
}

type config struct {
	Token  string `json:"token"`
	Shards int    `json:"shards"`
	DBPath string `json:"db_path"`
}

func loadConfig(cfg *utils.Config, path string) *config {
	f, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var c config
	if err := json.Unmarshal(f, &c); err != nil {
		panic(err)
	}

	if c.DBPath == "" {
		c.DBPath = "./data.json"
	}

	cfg.Set("token", c.Token)
	cfg.Set("shards", c.Shards)
	return &c
}

func openDatabase(path string) (gavel.DB, error) {
	if strings.HasSuffix(path, ".json") {
		db, err := gavel.NewJsonDatabase(path)
		return db, err
	}
	db, err := gavel.NewSqliteDatabase(path)
	return db, err
}
