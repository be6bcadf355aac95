package models

import "time"

// Config 構造体はサーバー全体の設定情報を保持します。config.jsonから読み込まれます。
type Config struct {
	Server  ServerConfig  `json:"server"`
	Auth    AuthConfig    `json:"auth"`
	Lobby   LobbyConfig   `json:"lobby"`
	Maze    MazeConfig    `json:"maze"`
	DB      DBConfig      `json:"db"`
	Redis   RedisConfig   `json:"redis"`
	History HistoryConfig `json:"history"`
}

type ServerConfig struct {
	Addr                 string   `json:"addr"`
	AllowOrigins         []string `json:"allow_origins"`
	ShutdownGraceSeconds int      `json:"shutdown_grace_seconds"` // server-offline通知から強制切断までの猶予
}

type AuthConfig struct {
	JWTSecret     string `json:"jwt_secret"`
	TokenTTLHours int    `json:"token_ttl_hours"`
}

// LobbyConfig はマッチメイキングとタイマーの設定
type LobbyConfig struct {
	PendingTimeoutSeconds int  `json:"pending_timeout_seconds"`
	MazeDelaySeconds      int  `json:"maze_delay_seconds"`
	ReclaimInviteCodes    bool `json:"reclaim_invite_codes"` // falseの場合、使用済みの招待コードは再利用しない
}

type MazeConfig struct {
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
	CellSize float64 `json:"cell_size"`
}

// DBConfig はデータベース接続の設定情報を保持します。
type DBConfig struct {
	Enabled    bool   `json:"enabled"`
	DBHost     string `json:"db_host"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`
}

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

type HistoryConfig struct {
	RetentionDays int `json:"retention_days"`
}

// DefaultConfig は設定ファイルが存在しない場合に使用されるデフォルト値を返します。
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:                 ":8080",
			AllowOrigins:         []string{"http://localhost:8080"},
			ShutdownGraceSeconds: 5,
		},
		Auth: AuthConfig{
			JWTSecret:     "change-me",
			TokenTTLHours: 72,
		},
		Lobby: LobbyConfig{
			PendingTimeoutSeconds: 15,
			MazeDelaySeconds:      5,
		},
		Maze: MazeConfig{
			Cols:     10,
			Rows:     10,
			CellSize: 80,
		},
		DB: DBConfig{
			DBSSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		History: HistoryConfig{
			RetentionDays: 30,
		},
	}
}

func (c ServerConfig) ShutdownGrace() time.Duration {
	return time.Duration(c.ShutdownGraceSeconds) * time.Second
}

func (c AuthConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLHours) * time.Hour
}

func (c LobbyConfig) PendingTimeout() time.Duration {
	return time.Duration(c.PendingTimeoutSeconds) * time.Second
}

func (c LobbyConfig) MazeDelay() time.Duration {
	return time.Duration(c.MazeDelaySeconds) * time.Second
}
