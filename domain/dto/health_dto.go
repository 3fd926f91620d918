package dto

// BotSnapshot is the read-only view served by the health endpoint. It mirrors
// the orchestrator's state at the end of the most recent tick.
type BotSnapshot struct {
	Status                 string `json:"status"`
	BotStatus              string `json:"bot_status"`
	BotUserID              string `json:"bot_user_id,omitempty"`
	TimestampUTC           string `json:"timestamp_utc"`
	LastCheckStartTimeUTC  string `json:"last_check_start_time_utc,omitempty"`
	LastPostTimeUTC        string `json:"last_post_time_utc,omitempty"`
	LastRefreshTimeUTC     string `json:"last_refresh_time_utc,omitempty"`
	AccessTokenStatus      string `json:"access_token_status"`
	AccessTokenAge         string `json:"access_token_age,omitempty"`
	AccessTokenEstTimeLeft string `json:"access_token_estimated_time_left,omitempty"`
	LastError              string `json:"last_error,omitempty"`
}
