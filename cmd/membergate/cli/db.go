package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/model"
	"github.com/membergate/membergate/internal/service"
	"github.com/membergate/membergate/internal/store"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the database",
		Long:  "Run migrations and seed initial data.",
	}

	cmd.AddCommand(newDBMigrateCmd())
	cmd.AddCommand(newDBSeedCmd())

	return cmd
}

// ---------- db migrate ----------

func newDBMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  "Create any missing tables and indexes. Migrations are idempotent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBMigrate()
		},
	}

	return cmd
}

func runDBMigrate() error {
	// Open runs the migrations on every start. The command exists so
	// deploy pipelines can fail fast before starting the server.
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Ping(cmdCtx()); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	fmt.Println("Database schema is up to date.")
	return nil
}

// ---------- db seed ----------

func newDBSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed initial data from a YAML file",
		Long: `Seed an initial admin, the current passphrase, and starter categories and
contents from a YAML file. Entries that already exist are skipped.`,
		Example: `  membergate db seed --file seed.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBSeed(file)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "Path to the seed YAML file")

	return cmd
}

func runDBSeed(file string) error {
	seed, err := config.LoadSeedFile(file)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmdCtx()
	now := time.Now()

	if seed.Admin.Email != "" {
		hash, err := service.HashPassword(seed.Admin.Password)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		name := seed.Admin.Name
		if name == "" {
			name = seed.Admin.Email
		}
		admin := &model.Admin{Email: seed.Admin.Email, PasswordHash: hash, Name: name}
		switch err := st.CreateAdmin(ctx, admin); {
		case err == nil:
			fmt.Printf("Seeded admin %q\n", admin.Email)
		case errors.Is(err, store.ErrDuplicate):
			fmt.Printf("Admin %q already exists, skipped\n", admin.Email)
		default:
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	if seed.Passphrase.Phrase != "" {
		month, year := seed.Passphrase.Month, seed.Passphrase.Year
		if month == 0 {
			month = int(now.Month())
		}
		if year == 0 {
			year = now.Year()
		}
		pp := &model.PassPhrase{Phrase: seed.Passphrase.Phrase, Month: month, Year: year}
		switch err := st.CreatePassPhrase(ctx, pp); {
		case err == nil:
			fmt.Printf("Seeded passphrase for %d-%02d\n", year, month)
		case errors.Is(err, store.ErrDuplicate):
			fmt.Printf("Passphrase for %d-%02d already exists, skipped\n", year, month)
		default:
			return fmt.Errorf("seed passphrase: %w", err)
		}
	}

	for _, sc := range seed.Categories {
		cat := &model.Category{Name: sc.Name, Slug: sc.Slug, SortOrder: sc.Order}
		switch err := st.CreateCategory(ctx, cat); {
		case err == nil:
			fmt.Printf("Seeded category %q\n", cat.Slug)
		case errors.Is(err, store.ErrDuplicate):
			fmt.Printf("Category %q already exists, skipped\n", cat.Slug)
		default:
			return fmt.Errorf("seed category %q: %w", sc.Slug, err)
		}
	}

	for _, sc := range seed.Contents {
		cat, err := st.GetCategoryBySlug(ctx, sc.Category)
		if err != nil {
			return fmt.Errorf("seed content %q: unknown category %q", sc.Title, sc.Category)
		}
		publishedAt := now
		content := &model.Content{
			Title:          sc.Title,
			Type:           sc.Type,
			YouTubeURL:     sc.YouTubeURL,
			ArticleContent: sc.ArticleContent,
			Thumbnail:      sc.Thumbnail,
			CategoryID:     cat.ID,
			IsPinned:       sc.Pinned,
			PublishedAt:    &publishedAt,
		}
		if err := st.CreateContent(ctx, content); err != nil {
			return fmt.Errorf("seed content %q: %w", sc.Title, err)
		}
		fmt.Printf("Seeded content %q\n", sc.Title)
	}

	fmt.Println("Seed complete.")
	return nil
}
