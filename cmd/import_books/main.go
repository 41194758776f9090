package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-ledger/config"
	"library-ledger/library"
)

// catalogueHeader is the expected first line of a catalogue file.
var catalogueHeader = []string{"isbn", "title", "author", "year", "genre", "quantity"}

type importResult struct {
	imported []library.Book
	errs     []error
}

func main() {
	var configPath, dataDir string
	cmd := &cobra.Command{
		Use:          "import_books <catalogue.csv>",
		Short:        "Add every book of a catalogue file to the library",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(c *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if c.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			return run(cfg, args[0], os.Stdout)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the record files")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.Config, path string, out io.Writer) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()

	opts, err := cfg.Options(library.Logger(discard{}))
	if err != nil {
		return err
	}
	manager, err := library.OpenLibraryManager(cfg.Backend, cfg.DataDir, cfg.DBFile, opts...)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	defer manager.Close()

	fmt.Fprintf(out, "Importing books from %s...\n", path)
	res := importCatalogue(manager, f, out)

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", len(res.imported))
	fmt.Fprintf(out, "Errors: %d\n", len(res.errs))

	if len(res.imported) > 0 {
		fmt.Fprintln(out, "\nImported books:")
		fmt.Fprintf(out, "%-3s %-50s %-30s %s\n", "ID", "Title", "Author", "Qty")
		fmt.Fprintln(out, strings.Repeat("-", 90))
		for _, book := range res.imported {
			fmt.Fprintf(out, "%-3d %-50s %-30s %d\n", book.ID, library.Truncate(book.Title, 50), library.Truncate(book.Author, 30), book.Quantity)
		}
	}
	return errors.Join(res.errs...)
}

// importCatalogue adds one book per row. A bad row is reported and skipped.
func importCatalogue(manager *library.LibraryManager, r io.Reader, out io.Writer) importResult {
	var res importResult
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			res.errs = append(res.errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), catalogueHeader[0]) {
			continue
		}

		book, err := parseCatalogueRow(record)
		if err == nil {
			fmt.Fprintf(out, "Importing: %s by %s... ", book.Title, book.Author)
			book, err = manager.AddBook(book)
		}
		if err != nil {
			fmt.Fprintf(out, "ERROR - line %d: %v\n", line, err)
			res.errs = append(res.errs, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %d)\n", book.ID)
		res.imported = append(res.imported, book)
	}
	return res
}

func parseCatalogueRow(record []string) (library.Book, error) {
	if len(record) != len(catalogueHeader) {
		return library.Book{}, fmt.Errorf("%w: want %d fields, got %d", library.ErrMalformedRecord, len(catalogueHeader), len(record))
	}
	year, err := strconv.Atoi(strings.TrimSpace(record[3]))
	if err != nil {
		return library.Book{}, fmt.Errorf("%w: year %q", library.ErrMalformedRecord, record[3])
	}
	quantity, err := strconv.Atoi(strings.TrimSpace(record[5]))
	if err != nil {
		return library.Book{}, fmt.Errorf("%w: quantity %q", library.ErrMalformedRecord, record[5])
	}
	return library.Book{
		ISBN:            record[0],
		Title:           record[1],
		Author:          record[2],
		PublicationYear: year,
		Genre:           record[4],
		Quantity:        quantity,
	}, nil
}

type discard struct{}

func (discard) Debug(string, ...any) {}
func (discard) Info(string, ...any)  {}
func (discard) Warn(string, ...any)  {}
func (discard) Error(string, ...any) {}
