package config

import (
	"flag"
	"os"
	"time"

	"github.com/clintfred/ironoxide/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN (empty selects the in-memory store)
//	-j int      project id for assertion scoping
//	-m string   segment id for assertion scoping
//	-i int      assertion key id
//	-k string   assertion EC private key PEM file
//	-t int      assertion validity, seconds
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-j", "-m", "-i", "-k", "-t", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.ProjectID, "j", config.ProjectID, "project id")
	fs.StringVar(&config.SegmentID, "m", config.SegmentID, "segment id")
	fs.IntVar(&config.AssertionKeyID, "i", config.AssertionKeyID, "assertion key id")
	fs.StringVar(&config.AssertionKeyFile, "k", config.AssertionKeyFile, "assertion private key PEM file")

	assertionValidity := fs.Int("t", int(config.AssertionValidityDuration.Seconds()), "assertion validity (in seconds)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 root bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 root region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AssertionValidityDuration = time.Duration(*assertionValidity) * time.Second
}
