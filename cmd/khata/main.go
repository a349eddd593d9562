// Command khata is the terminal front end for the ledger: person and
// transaction management, balances, and JSON backup/restore.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"khata/internal/cli"
	"khata/internal/config"
	"khata/internal/core"
	"khata/internal/log"
	"khata/internal/services"
)

const usage = `Usage: khata <command> [options]

Commands:
  persons             list persons with balances
  add-person          add a person (-name, -phone, -email, -image)
  delete-person       delete a person and their transactions (-id, -yes)
  transactions        list transactions (-person to filter)
  add-transaction     record a transaction (-person, -amount, -type, -desc, -date)
  delete-transaction  delete a transaction (-id)
  stats               per-person summary (-person)
  export              write a backup file and hand it to the share target
  restore             replace all data from a backup file (-file, -yes)
  info                backup summary (counts, version)
  clear               delete all data (-yes)
`

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg)
	cli.ValidateConfig(logger, cfg)

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ledger := cli.NewLedger(cfg)
	defer ledger.Close()
	backup := services.NewBackupService(ledger, services.NopSharer{}, cfg.BackupDir)

	ctx := context.Background()
	if err := run(ctx, os.Args[1], os.Args[2:], ledger, backup); err != nil {
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, command string, args []string, ledger *services.LedgerService, backup *services.BackupService) error {
	switch command {
	case "persons":
		return listPersons(ctx, ledger)
	case "add-person":
		return addPerson(ctx, args, ledger)
	case "delete-person":
		return deletePerson(ctx, args, ledger)
	case "transactions":
		return listTransactions(ctx, args, ledger)
	case "add-transaction":
		return addTransaction(ctx, args, ledger)
	case "delete-transaction":
		return deleteTransaction(ctx, args, ledger)
	case "stats":
		return showStats(ctx, args, ledger)
	case "export":
		return exportBackup(ctx, backup)
	case "restore":
		return restoreBackup(ctx, args, backup)
	case "info":
		return showInfo(ctx, backup)
	case "clear":
		return clearAll(ctx, args, ledger)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func listPersons(ctx context.Context, ledger *services.LedgerService) error {
	persons, err := ledger.Persons(ctx)
	if err != nil {
		return err
	}
	if len(persons) == 0 {
		fmt.Println("No persons yet.")
		return nil
	}
	for _, p := range persons {
		stats, err := ledger.StatsForPerson(ctx, p.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%s  %-20s  balance %9.2f  (%d transactions)\n",
			p.ID, p.Name, stats.Balance, stats.TransactionCount)
	}
	return nil
}

func addPerson(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("add-person", flag.ExitOnError)
	name := fs.String("name", "", "display name (required)")
	phone := fs.String("phone", "", "phone number")
	email := fs.String("email", "", "email address")
	image := fs.String("image", "", "photo file URI")
	fs.Parse(args)

	p, err := ledger.AddPerson(ctx, *name, *phone, *email, *image)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s (%s)\n", p.Name, p.ID)
	return nil
}

func deletePerson(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("delete-person", flag.ExitOnError)
	id := fs.String("id", "", "person id (required)")
	yes := fs.Bool("yes", false, "confirm deletion of the person and all their transactions")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	if !*yes {
		return fmt.Errorf("deleting a person removes all their transactions; re-run with -yes to confirm")
	}
	if err := ledger.DeletePerson(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *id)
	return nil
}

func listTransactions(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	person := fs.String("person", "", "only this person's transactions")
	fs.Parse(args)

	var (
		txns []core.Transaction
		err  error
	)
	if *person != "" {
		txns, err = ledger.TransactionsForPerson(ctx, *person)
	} else {
		txns, err = ledger.Transactions(ctx)
	}
	if err != nil {
		return err
	}
	if len(txns) == 0 {
		fmt.Println("No transactions yet.")
		return nil
	}
	for _, t := range txns {
		sign := "+"
		if t.Type == core.Debit {
			sign = "-"
		}
		fmt.Printf("%s  %s  %s%9.2f  %-7s  %s\n",
			t.ID, t.Date.Format("2006-01-02"), sign, t.Amount, t.Type, t.Description)
	}
	return nil
}

func addTransaction(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("add-transaction", flag.ExitOnError)
	person := fs.String("person", "", "person id (required)")
	amount := fs.String("amount", "", "positive amount (required)")
	typ := fs.String("type", "", "credit (money given) or debit (money taken)")
	desc := fs.String("desc", "", "description")
	date := fs.String("date", "", "transaction date, RFC 3339 (default: now)")
	fs.Parse(args)

	txType, err := core.ParseTxType(*typ)
	if err != nil {
		return err
	}
	var when time.Time
	if *date != "" {
		when, err = time.Parse(time.RFC3339, *date)
		if err != nil {
			return fmt.Errorf("%w: %q", core.ErrInvalidDate, *date)
		}
	}

	t, err := ledger.AddTransaction(ctx, *person, *amount, txType, *desc, when)
	if err != nil {
		return err
	}
	fmt.Printf("Recorded %s of %.2f for %s (%s)\n", t.Type, t.Amount, t.PersonID, t.ID)
	return nil
}

func deleteTransaction(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("delete-transaction", flag.ExitOnError)
	id := fs.String("id", "", "transaction id (required)")
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id is required")
	}
	if err := ledger.DeleteTransaction(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", *id)
	return nil
}

func showStats(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	person := fs.String("person", "", "person id (required)")
	fs.Parse(args)

	if *person == "" {
		return fmt.Errorf("-person is required")
	}
	stats, err := ledger.StatsForPerson(ctx, *person)
	if err != nil {
		return err
	}
	fmt.Printf("Balance:      %9.2f\n", stats.Balance)
	fmt.Printf("Given total:  %9.2f\n", stats.GivenTotal)
	fmt.Printf("Taken total:  %9.2f\n", stats.TakenTotal)
	fmt.Printf("Transactions: %d\n", stats.TransactionCount)
	if stats.LastTransactionDate != nil {
		fmt.Printf("Last date:    %s\n", stats.LastTransactionDate.Format(core.TimeLayout))
	}
	return nil
}

func exportBackup(ctx context.Context, backup *services.BackupService) error {
	status, err := backup.ShareBackup(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Backup %s\n", status)
	return nil
}

func restoreBackup(ctx context.Context, args []string, backup *services.BackupService) error {
	fs := flag.NewFlagSet("restore", flag.ExitOnError)
	file := fs.String("file", "", "backup file to restore (required)")
	yes := fs.Bool("yes", false, "confirm that restoring discards all current data")
	fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("-file is required")
	}

	flow := backup.NewRestore()
	if err := flow.SelectFile(*file); err != nil {
		return err
	}
	if !*yes {
		return fmt.Errorf("restoring replaces all current data; re-run with -yes to confirm")
	}
	if err := flow.Confirm(); err != nil {
		return err
	}
	if err := flow.Run(ctx); err != nil {
		return err
	}
	fmt.Println("Restore complete.")
	return nil
}

func showInfo(ctx context.Context, backup *services.BackupService) error {
	info := backup.GetBackupInfo(ctx)
	fmt.Printf("Persons:      %d\n", info.PersonCount)
	fmt.Printf("Transactions: %d\n", info.TransactionCount)
	fmt.Printf("Version:      %s\n", info.Version)
	fmt.Printf("Export date:  %s\n", info.LastExport)
	return nil
}

func clearAll(ctx context.Context, args []string, ledger *services.LedgerService) error {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	yes := fs.Bool("yes", false, "confirm deleting every person and transaction")
	fs.Parse(args)

	if !*yes {
		return fmt.Errorf("clear deletes everything; re-run with -yes to confirm")
	}
	if err := ledger.ClearAll(ctx); err != nil {
		return err
	}
	fmt.Println("All data cleared.")
	return nil
}
