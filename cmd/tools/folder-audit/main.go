// cmd/tools/folder-audit/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"insurance-backoffice/internal/common/aws"
	"insurance-backoffice/internal/documents/folder"
	"insurance-backoffice/internal/storage/objectstore"
	"insurance-backoffice/pkg/registry"
)

var registryPath string

func main() {
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	deriveCmd := flag.NewFlagSet("derive", flag.ExitOnError)
	auditCmd := flag.NewFlagSet("audit", flag.ExitOnError)

	// Validate command flags
	validateCmd.StringVar(&registryPath, "path", "", "Path to category registry file (embedded default when empty)")

	// Derive command flags
	userID := deriveCmd.Int("user", 0, "Uploading user id")
	docType := deriveCmd.String("type", "", "Document type (e.g., claim_document)")
	claimID := deriveCmd.Int("claim", 0, "Claim record id (0 when not yet bound)")
	category := deriveCmd.String("category", "", "Category display name or id")

	// Audit command flags
	dir := auditCmd.String("dir", "uploads", "Local upload directory")
	bucket := auditCmd.String("bucket", "", "S3 bucket to audit instead of the local directory")
	region := auditCmd.String("region", os.Getenv("AWS_REGION"), "S3 region")
	endpoint := auditCmd.String("endpoint", "", "Custom S3 endpoint (e.g., MinIO)")
	prefix := auditCmd.String("prefix", "claims/", "Only audit keys under this prefix")
	auditCmd.StringVar(&registryPath, "registry", "", "Path to category registry file (embedded default when empty)")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "validate":
		validateCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Registry version %s is valid.\n", reg.Version())
		for _, ct := range reg.ClaimTypes() {
			fmt.Printf("  %-8s %d categories, %d mappings\n", ct, len(reg.AllCategories(ct)), len(reg.Mappings(ct)))
		}

	case "derive":
		deriveCmd.Parse(os.Args[2:])
		if *userID <= 0 || *docType == "" {
			fmt.Println("Error: user and type are required for derive.")
			deriveCmd.Usage()
			os.Exit(1)
		}
		if !folder.IsAllowedDocumentType(*docType) {
			fmt.Printf("Error: unknown document type %q (allowed: %s)\n", *docType, strings.Join(folder.AllowedDocumentTypes(), ", "))
			os.Exit(1)
		}
		var claim *int
		if *claimID > 0 {
			claim = claimID
		}
		var cat *string
		if strings.TrimSpace(*category) != "" {
			normalized := registry.Normalize(*category)
			cat = &normalized
		}
		fmt.Println(folder.Derive(*userID, *docType, claim, cat))

	case "audit":
		auditCmd.Parse(os.Args[2:])
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			fmt.Printf("Error loading registry: %v\n", err)
			os.Exit(1)
		}
		ctx := context.Background()
		var store objectstore.Store = objectstore.NewLocal(*dir, "")
		if *bucket != "" {
			client, err := aws.NewS3Client(ctx, aws.S3Options{Region: *region, Endpoint: *endpoint})
			if err != nil {
				fmt.Printf("Error creating S3 client: %v\n", err)
				os.Exit(1)
			}
			store = objectstore.NewS3(client, objectstore.S3Config{
				Bucket:   *bucket,
				Region:   *region,
				Endpoint: *endpoint,
				Timeout:  time.Minute,
			})
		}
		keys, err := store.List(ctx, *prefix)
		if err != nil {
			fmt.Printf("Error listing %s store: %v\n", store.Backend(), err)
			os.Exit(1)
		}
		report := audit(keys, reg)
		report.print()
		if len(report.Unknown) > 0 {
			os.Exit(2)
		}

	case "help":
		fallthrough
	default:
		help()
	}
}

// auditReport splits claim document keys by folder layout.
type auditReport struct {
	Total    int
	Category int
	Legacy   int
	// Unknown maps a category segment that no claim type declares to its key count.
	Unknown map[string]int
}

func audit(keys []string, reg *registry.Registry) auditReport {
	known := map[string]bool{}
	for _, ct := range reg.ClaimTypes() {
		for _, id := range reg.AllCategories(ct) {
			known[id] = true
		}
	}

	report := auditReport{Unknown: map[string]int{}}
	for _, key := range keys {
		report.Total++
		dir := path.Dir(key)
		if !folder.IsCategoryFolder(dir) {
			report.Legacy++
			continue
		}
		report.Category++
		segment := path.Base(dir)
		if !known[segment] {
			report.Unknown[segment]++
		}
	}
	return report
}

func (r auditReport) print() {
	fmt.Printf("Claim documents: %d\n", r.Total)
	fmt.Printf("  category folders: %d\n", r.Category)
	fmt.Printf("  legacy folders:   %d\n", r.Legacy)
	if len(r.Unknown) == 0 {
		return
	}
	names := make([]string, 0, len(r.Unknown))
	for name := range r.Unknown {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Unrecognized categories:")
	for _, name := range names {
		fmt.Printf("  %s (%d)\n", name, r.Unknown[name])
	}
}

func help() {
	fmt.Println("Usage: folder-audit <command> [arguments]")
	fmt.Println("Commands:")
	fmt.Println("  validate  Load the category registry and print a summary")
	fmt.Println("  derive    Print the storage folder for an upload")
	fmt.Println("  audit     Count claim documents in category and legacy folders (local directory or S3 bucket)")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'folder-audit <command> -h' for command-specific help.")
}
