package database

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"strconv"

	"mazeserver/models"

	"github.com/joho/godotenv"
)

// LoadConfig loads the configuration from config.json.
// ファイルが存在しない場合はデフォルト値を使い、.envと環境変数で上書きします。
func LoadConfig(filename string) (models.Config, error) {
	config := models.DefaultConfig()

	// .envは任意
	_ = godotenv.Load()

	configFile, err := os.Open(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config, err
	default:
		defer configFile.Close()
		jsonParser := json.NewDecoder(configFile)
		if err := jsonParser.Decode(&config); err != nil {
			return config, err
		}
	}

	if err := applyEnv(&config); err != nil {
		return config, err
	}
	return config, nil
}

func applyEnv(config *models.Config) error {
	if port := os.Getenv("PORT"); port != "" {
		config.Server.Addr = ":" + port
	}
	setString(&config.Server.Addr, "SERVER_ADDR")
	setString(&config.Auth.JWTSecret, "JWT_SECRET")

	if setString(&config.DB.DBHost, "DB_HOST") {
		config.DB.Enabled = true
	}
	setString(&config.DB.DBUser, "DB_USER")
	setString(&config.DB.DBPassword, "DB_PASSWORD")
	setString(&config.DB.DBName, "DB_NAME")
	setString(&config.DB.DBSSLMode, "DB_SSLMODE")

	if setString(&config.Redis.Addr, "REDIS_ADDR") {
		config.Redis.Enabled = true
	}
	setString(&config.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("invalid REDIS_DB value: " + v)
		}
		config.Redis.DB = db
	}
	return nil
}

func setString(dst *string, key string) bool {
	v := os.Getenv(key)
	if v == "" {
		return false
	}
	*dst = v
	return true
}
