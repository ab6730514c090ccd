package clientpkg

import (
	"fmt"
	"strings"
)

func GetFlagWithPrefix(flag, prefix string) string {
	if prefix == "" {
		return flag
	}
	return fmt.Sprintf("%s-%s", prefix, flag)
}

// EnvName maps a flag name to the environment variable viper reads it from.
func EnvName(flag string) string {
	return strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
