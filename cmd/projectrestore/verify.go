package main

import (
	"fmt"
	"path/filepath"

	"github.com/projectvault/projectrestore/internal/restore"
	"github.com/spf13/cobra"
)

var (
	verifyArchive   string
	verifyChecksums string
)

func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify an archive's checksum without restoring",
		Long: `Compute the SHA-256 digest of a snapshot archive and, when a checksum
manifest is given, compare it against the manifest entry matching the archive
filename. The comparison is case-insensitive. Without --checksums the digest
is just printed.`,
		Example: `  projectrestore verify --archive snapshot.tar.gz
  projectrestore verify --archive snapshot.tar.zst --checksums SHA256SUMS`,
		RunE: verifyRun,
	}

	cmd.Flags().StringVar(&verifyArchive, "archive", "", "snapshot archive to verify (required)")
	cmd.Flags().StringVar(&verifyChecksums, "checksums", "", "sha256sum-style manifest to compare against")

	cmd.MarkFlagRequired("archive")

	return cmd
}

func verifyRun(cmd *cobra.Command, args []string) error {
	digest, err := restore.ComputeSHA256(verifyArchive)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", digest, filepath.Base(verifyArchive))

	if verifyChecksums == "" {
		return nil
	}

	if err := restore.VerifyArchive(verifyArchive, verifyChecksums); err != nil {
		return err
	}
	fmt.Println("Checksum verified.")
	return nil
}
