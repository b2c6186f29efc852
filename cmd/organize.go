package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"mediaorg/internal"
)

var (
	previewFlag          bool
	fallbackMtimeFlag    bool
	removeDuplicatesFlag bool
	extractArchivesFlag  bool
	passwordFlag         string
	threadsFlag          int
)

var organizeCmd = &cobra.Command{
	Use:   "organize <source_dir> <target_dir>",
	Short: "Move media files into <target>/YYYY/MM by capture date",
	Long: `Organize resolves a capture date for every media file under the source
directory (embedded tag, JSON sidecar, thumbnail, filename pattern, optional
mtime fallback) and moves it into <target>/YYYY/MM. Name collisions are
resolved by size and content hash; identical files are skipped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		target := args[1]

		if cmd.Flags().Changed("threads") && threadsFlag < 1 {
			return &exitError{exitUsage, fmt.Errorf("invalid thread count: %d", threadsFlag)}
		}

		info, err := os.Stat(source)
		if err != nil || !info.IsDir() {
			return &exitError{exitBadSource, fmt.Errorf("source directory does not exist: %s", source)}
		}

		conf, err := internal.LoadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Source: %s\n", absPath(source))
		fmt.Printf("Target: %s\n", absPath(target))
		if previewFlag {
			fmt.Println("[PREVIEW MODE — no files will be moved]")
		}

		metadata := internal.NewMetadataClient()
		defer metadata.Close()

		org, err := internal.NewOrganizer(conf, internal.Options{
			Source:            absPath(source),
			Target:            absPath(target),
			Preview:           previewFlag,
			FallbackToModTime: fallbackMtimeFlag,
			RemoveDuplicates:  removeDuplicatesFlag,
			ExtractArchives:   extractArchivesFlag,
			Password:          passwordFlag,
			Workers:           threadsFlag,
		}, metadata, internal.NewArchiveExtractor(), promptPassword)
		if err != nil {
			return err
		}

		return org.Run()
	},
}

func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// promptPassword asks on stdin for a protected archive's password.
func promptPassword(archive string) (string, bool) {
	fmt.Printf("Password for %s: ", archive)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", false
	}
	line = strings.TrimSpace(line)
	return line, line != ""
}

func init() {
	organizeCmd.Flags().BoolVar(&previewFlag, "preview", false, "Dry run: report decisions without touching files")
	organizeCmd.Flags().BoolVar(&fallbackMtimeFlag, "fallback-to-mtime", false, "Use file modification time when no other date source is valid")
	organizeCmd.Flags().BoolVar(&removeDuplicatesFlag, "remove-duplicates", false, "Delete the source file on confirmed duplicates instead of skipping")
	organizeCmd.Flags().BoolVar(&extractArchivesFlag, "extract-archives", false, "Unpack archives under the source tree before organizing")
	organizeCmd.Flags().StringVar(&passwordFlag, "password", "", "Password for protected archives")
	organizeCmd.Flags().IntVar(&threadsFlag, "threads", 0, "Worker pool size (default: 2x CPU count)")

	rootCmd.AddCommand(organizeCmd)
}
