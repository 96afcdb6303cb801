package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/membergate/membergate/internal/model"
)

func newPassphraseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "passphrase",
		Aliases: []string{"pp"},
		Short:   "Manage monthly passphrases",
		Long:    "Set, list, and delete the shared passphrases members use to sign in.",
	}

	cmd.AddCommand(newPassphraseSetCmd())
	cmd.AddCommand(newPassphraseListCmd())
	cmd.AddCommand(newPassphraseDeleteCmd())

	return cmd
}

// ---------- passphrase set ----------

func newPassphraseSetCmd() *cobra.Command {
	var (
		month int
		year  int
	)

	cmd := &cobra.Command{
		Use:   "set <phrase>",
		Short: "Register the passphrase for a month",
		Long:  "Register the shared passphrase for a month. Defaults to the current month.",
		Example: `  membergate passphrase set "summer-training-2025"
  membergate passphrase set "next-month" --month 7 --year 2025`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPassphraseSet(args[0], month, year)
		},
	}

	cmd.Flags().IntVar(&month, "month", 0, "Month 1-12 (default: current month)")
	cmd.Flags().IntVar(&year, "year", 0, "Year (default: current year)")

	return cmd
}

func runPassphraseSet(phrase string, month, year int) error {
	if phrase == "" {
		return fmt.Errorf("passphrase must not be empty")
	}

	now := time.Now()
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("month must be between 1 and 12")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	pp := &model.PassPhrase{Phrase: phrase, Month: month, Year: year}
	if err := st.CreatePassPhrase(cmdCtx(), pp); err != nil {
		return fmt.Errorf("create passphrase: %w", err)
	}

	fmt.Printf("Registered passphrase for %d-%02d\n", year, month)
	return nil
}

// ---------- passphrase list ----------

func newPassphraseListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List registered passphrases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPassphraseList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runPassphraseList(jsonOutput bool) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	phrases, err := st.ListPassPhrases(cmdCtx())
	if err != nil {
		return fmt.Errorf("list passphrases: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(phrases)
	}

	if len(phrases) == 0 {
		fmt.Println("No passphrases registered. Use 'membergate passphrase set' to add one.")
		return nil
	}

	fmt.Printf("%-36s %-10s %s\n", "ID", "MONTH", "PHRASE")
	fmt.Printf("%-36s %-10s %s\n", "--", "-----", "------")
	for _, p := range phrases {
		fmt.Printf("%-36s %d-%02d    %s\n", p.ID, p.Year, p.Month, p.Phrase)
	}

	return nil
}

// ---------- passphrase delete ----------

func newPassphraseDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a passphrase",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPassphraseDelete(args[0])
		},
	}

	return cmd
}

func runPassphraseDelete(id string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx := cmdCtx()

	if err := st.DeletePassPhrase(ctx, id); err != nil {
		return fmt.Errorf("delete passphrase: %w", err)
	}

	if n, err := st.DeleteExpiredSessions(ctx, time.Now()); err == nil && n > 0 {
		fmt.Printf("Pruned %d expired sessions\n", n)
	}

	fmt.Println("Deleted passphrase")
	return nil
}
