package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"shareit/internal/apperr"
	"shareit/internal/config"
	"shareit/internal/database"
	"shareit/internal/models"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// DirectoryFile is the users/items part of the service config.
type DirectoryFile struct {
	Users []models.User `yaml:"users"`
	Items []models.Item `yaml:"items"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		filePath = flag.String("file", "configs/config.yaml", "yaml with users and items")
		dbPath   = flag.String("db", "./data/shareit.db", "path to sqlite db")
		dryRun   = flag.Bool("dry-run", false, "validate and report without writing")
	)
	flag.Parse()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	var dir DirectoryFile
	if err = yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &dir); err != nil {
		return fmt.Errorf("parse directory: %w", err)
	}
	if len(dir.Users) == 0 && len(dir.Items) == 0 {
		return fmt.Errorf("no users or items in yaml")
	}
	if err = config.ValidateUsers(dir.Users); err != nil {
		return err
	}
	if err = config.ValidateItems(dir.Items, dir.Users); err != nil {
		return err
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	newUsers := 0
	for _, u := range dir.Users {
		_, err = db.GetUserByID(ctx, u.ID)
		switch {
		case apperr.Is(err, apperr.ErrNotFound):
			newUsers++
		case err != nil:
			return fmt.Errorf("get user %d: %w", u.ID, err)
		}
	}
	newItems := 0
	for _, it := range dir.Items {
		_, err = db.GetItemByID(ctx, it.ID)
		switch {
		case apperr.Is(err, apperr.ErrNotFound):
			newItems++
		case err != nil:
			return fmt.Errorf("get item %d: %w", it.ID, err)
		}
	}

	if !*dryRun {
		if err = db.SyncUsers(ctx, dir.Users); err != nil {
			return err
		}
		if err = db.SyncItems(ctx, dir.Items); err != nil {
			return err
		}
	}

	fmt.Printf("done (dry-run=%t): users created=%d updated=%d, items created=%d updated=%d\n",
		*dryRun,
		newUsers, len(dir.Users)-newUsers,
		newItems, len(dir.Items)-newItems)
	return nil
}
