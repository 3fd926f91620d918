package configuration

import (
	"fmt"
	"os"
	"strconv"

	"robopost/infrastructure/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App         App         `json:"app"`
	Bot         Bot         `json:"bot"`
	Platform    Platform    `json:"platform"`
	OpenAI      OpenAI      `json:"openAI"`
	Database    Database    `json:"database"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
}

type App struct {
	Port      int    `json:"port"`
	SecretKey string `json:"secretKey"`
}

// Bot holds the cadence settings of the posting and reply loops.
type Bot struct {
	PostIntervalHours    int  `json:"postIntervalHours"`
	SleepIntervalSeconds int  `json:"sleepIntervalSeconds"`
	ReplyEnabled         bool `json:"replyEnabled"`
	ReplyScanMinutes     int  `json:"replyScanMinutes"`
	MaxRepliesPerScan    int  `json:"maxRepliesPerScan"`
	MaxPostLength        int  `json:"maxPostLength"`
}

// Platform holds the X API client identity and endpoint settings.
type Platform struct {
	BaseURL       string `json:"baseURL"`
	ClientID      string `json:"clientId"`
	ClientSecret  string `json:"clientSecret"`
	RedirectURI   string `json:"redirectURI"`
	AccountHandle string `json:"accountHandle"`

	// Per-endpoint timeouts in seconds.
	TimeoutValidate int `json:"timeoutValidate"`
	TimeoutFetch    int `json:"timeoutFetch"`
	TimeoutPublish  int `json:"timeoutPublish"`
	TimeoutLike     int `json:"timeoutLike"`
	TimeoutRefresh  int `json:"timeoutRefresh"`
}

type OpenAI struct {
	APIKey     string `json:"apiKey"`
	Model      string `json:"model"`
	MaxTokens  int    `json:"maxTokens"`
	Candidates int    `json:"candidates"`
}

type Database struct {
	Psql Db `json:"psql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
}

type RedisClient struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type Logger struct {
	Format string `json:"format"`
}

var C Config

func init() {
	// .env first so the env overrides below see file-provided values.
	_ = godotenv.Load()
	LoadConfig()
	initDefaults(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDefaults(C *Config) {
	// Secret key and port resolution, env overrides config.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 8080
	}

	if C.Bot.PostIntervalHours == 0 {
		C.Bot.PostIntervalHours = 24
	}
	if C.Bot.SleepIntervalSeconds == 0 {
		C.Bot.SleepIntervalSeconds = 3600
	}
	if C.Bot.ReplyScanMinutes == 0 {
		C.Bot.ReplyScanMinutes = 5
	}
	if C.Bot.MaxRepliesPerScan == 0 {
		C.Bot.MaxRepliesPerScan = 3
	}
	if C.Bot.MaxPostLength == 0 {
		C.Bot.MaxPostLength = 280
	}

	if C.Platform.BaseURL == "" {
		C.Platform.BaseURL = "https://api.twitter.com/2"
	}
	if C.Platform.ClientID == "" {
		C.Platform.ClientID = os.Getenv("X_CLIENT_ID")
	}
	if C.Platform.ClientSecret == "" {
		C.Platform.ClientSecret = os.Getenv("X_CLIENT_SECRET")
	}
	if C.Platform.RedirectURI == "" {
		C.Platform.RedirectURI = os.Getenv("X_REDIRECT_URI")
	}
	if C.Platform.TimeoutValidate == 0 {
		C.Platform.TimeoutValidate = 10
	}
	if C.Platform.TimeoutFetch == 0 {
		C.Platform.TimeoutFetch = 15
	}
	if C.Platform.TimeoutPublish == 0 {
		C.Platform.TimeoutPublish = 30
	}
	if C.Platform.TimeoutLike == 0 {
		C.Platform.TimeoutLike = 15
	}
	if C.Platform.TimeoutRefresh == 0 {
		C.Platform.TimeoutRefresh = 20
	}

	if C.OpenAI.APIKey == "" {
		C.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if C.OpenAI.Model == "" {
		C.OpenAI.Model = "o3-mini"
	}
	if C.OpenAI.MaxTokens == 0 {
		C.OpenAI.MaxTokens = 5000
	}
	if C.OpenAI.Candidates == 0 {
		C.OpenAI.Candidates = 3
	}

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}

	if C.RedisClient.Host == "" {
		C.RedisClient.Host = os.Getenv("REDIS_HOST")
	}
	if C.RedisClient.Port == "" {
		if v := os.Getenv("REDIS_PORT"); v != "" {
			C.RedisClient.Port = v
		} else {
			C.RedisClient.Port = "6379"
		}
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; admin API will reject all requests. Provide SECRET_KEY via environment.")
	}
}
