package cli

import (
	"github.com/spf13/cobra"

	"github.com/IvanChernomyrdin/gophassist/internal/agent/api"
	"github.com/IvanChernomyrdin/gophassist/internal/agent/memory"
)

// для тестов
var (
	NewAPIClient = api.NewClient
	ReadPassword = func(cmd *cobra.Command, prompt string, fromStdin bool) (string, error) {
		return readPassword(cmd, prompt, fromStdin)
	}
	SaveHistoryToFile = memory.SaveToFile
)
