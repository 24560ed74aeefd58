package reminder

import "context"

// SettingAutoReminder enables the daily automatic reminder run
const SettingAutoReminder = "auto_reminder"

// SettingRepository stores key/value application settings
type SettingRepository interface {
	// Get returns found=false when the key was never set
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
}
