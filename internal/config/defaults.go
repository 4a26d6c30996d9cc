package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformConfigDir returns the platform-specific config directory.
// FOCUSD_CONFIG_DIR overrides it.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/focusd/
//   - Linux:   $XDG_CONFIG_HOME/focusd/ or ~/.config/focusd/
//   - Windows: %APPDATA%\focusd\
func PlatformConfigDir() string {
	if dir := os.Getenv("FOCUSD_CONFIG_DIR"); dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Application Support", "focusd")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "focusd")
		}
		return fallbackDir()
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "focusd")
		}
		return filepath.Join(homeDir(), ".config", "focusd")
	}
}

// PlatformLogDir returns the platform-specific log directory.
//
// Platform paths:
//   - macOS:   ~/Library/Logs/focusd/
//   - Linux:   $XDG_STATE_HOME/focusd/ or ~/.local/state/focusd/
//   - Windows: %LOCALAPPDATA%\focusd\logs\
func PlatformLogDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Logs", "focusd")
	case "windows":
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "focusd", "logs")
		}
		return filepath.Join(fallbackDir(), "logs")
	default:
		if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
			return filepath.Join(xdg, "focusd")
		}
		return filepath.Join(homeDir(), ".local", "state", "focusd")
	}
}

func homeDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return os.TempDir()
}

func fallbackDir() string {
	return filepath.Join(homeDir(), ".focusd")
}

// SupportedConfigFormats returns the list of supported config file formats.
func SupportedConfigFormats() []string {
	return []string{"toml", "json", "yaml", "yml"}
}

// FindConfigFile searches the current directory, then the config directory,
// for config.<ext>. Returns an empty string if none is found.
func FindConfigFile() string {
	for _, dir := range []string{".", PlatformConfigDir()} {
		for _, ext := range SupportedConfigFormats() {
			path := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// DefaultProductiveApps returns executable names treated as productive when
// no custom list is configured.
func DefaultProductiveApps() []string {
	return []string{
		"code", "code.exe", "goland", "goland64.exe", "idea", "idea64.exe",
		"pycharm", "pycharm64.exe", "clion", "devenv.exe", "nvim", "vim", "emacs",
		"windowsterminal.exe", "cmd.exe", "powershell.exe", "pwsh", "alacritty",
		"kitty", "gnome-terminal", "iterm2", "terminal",
		"obsidian", "notion", "winword.exe", "excel.exe", "acrord32.exe",
	}
}

// DefaultDistractingApps returns executable names treated as distracting when
// no custom list is configured.
func DefaultDistractingApps() []string {
	return []string{
		"discord", "discord.exe", "slack", "slack.exe", "teams.exe",
		"twitter", "tiktok", "steam", "steam.exe", "spotify", "spotify.exe",
		"netflix", "vlc",
	}
}
