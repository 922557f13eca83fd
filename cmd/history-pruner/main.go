package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"callflow-go/internal/database"
)

// Config holds the pruner configuration, read from the same config.yaml the
// main service uses.
type Config struct {
	Database struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Name     string `yaml:"name"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		SSLMode  string `yaml:"sslmode"`
	} `yaml:"database"`

	Retention struct {
		Days int `yaml:"days"`
	} `yaml:"retention"`
}

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "help" {
		printUsage()
		return
	}

	config := loadConfig()

	retentionDays := config.Retention.Days
	if len(os.Args) >= 2 {
		days, err := strconv.Atoi(os.Args[1])
		if err != nil || days <= 0 {
			fmt.Printf("Invalid retention days: %s\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
		retentionDays = days
	}
	if retentionDays <= 0 {
		retentionDays = 30
	}

	db, err := database.NewPostgreSQL(database.Config{
		Host:     config.Database.Host,
		Port:     config.Database.Port,
		Name:     config.Database.Name,
		User:     config.Database.User,
		Password: config.Database.Password,
		SSLMode:  config.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	logrus.Infof("Pruning history older than %d days (cutoff %s)",
		retentionDays, cutoff.Format("2006-01-02"))

	pruned, err := db.PruneHistory(cutoff)
	if err != nil {
		log.Fatalf("Failed to prune history: %v", err)
	}

	fmt.Printf("Pruned %d history rows\n", pruned)
}

func printUsage() {
	fmt.Println(`Callflow History Pruner

USAGE:
    history-pruner [days]

Deletes archived tunnel and charging history older than the retention
period. The retention defaults to the "retention.days" value in config.yaml
(30 days when unset) and can be overridden with the days argument.

EXAMPLES:
    history-pruner            # Use configured retention
    history-pruner 7          # Keep only the last week`)
}

func loadConfig() *Config {
	configFile := "config.yaml"
	if len(os.Args) >= 3 && os.Args[len(os.Args)-2] == "--config" {
		configFile = os.Args[len(os.Args)-1]
	}

	data, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	return &config
}
