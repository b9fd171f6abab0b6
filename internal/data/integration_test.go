// internal/data/integration_test.go
// End-to-end tests against a disposable PostgreSQL container. They only run
// when the -integration flag is passed:
//
//	go test ./internal/data/ -integration
//
// Without the flag every test in this file skips, so the default test run
// needs no Docker daemon.
package data_test

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/qawatake/fixify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/nmvarela/biblioteca-api/internal/data"
)

var (
	runIntegration = flag.Bool("integration", false, "run integration tests against a disposable PostgreSQL container")
	db             *sql.DB
	models         data.Models
)

func TestMain(m *testing.M) {
	flag.Parse()

	if *runIntegration {
		ctx := context.Background()

		pgc, err := tcpostgres.Run(ctx, "postgres:16-alpine",
			tcpostgres.WithDatabase("biblioteca"),
			tcpostgres.WithUsername("biblioteca"),
			tcpostgres.WithPassword("biblioteca"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			slog.Error("failed to start postgres container", "error", err)
			os.Exit(1)
		}
		defer pgc.Terminate(ctx) //nolint:errcheck

		dsn, err := pgc.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			slog.Error("failed to get connection string", "error", err)
			os.Exit(1)
		}

		db, err = sql.Open("postgres", dsn)
		if err != nil {
			slog.Error("failed to open database", "error", err)
			os.Exit(1)
		}

		if err := data.ApplySchema(ctx, db); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}

		models = data.NewModels(db)
	}

	os.Exit(m.Run())
}

func skipUnlessIntegration(t *testing.T) {
	t.Helper()
	if !*runIntegration {
		t.Skip("skipping integration test")
	}
}

// Fixture models in the fixify style: each declares how a child model
// receives its parent's database-assigned id.

func categoryFx(name string) *fixify.Model[data.Category] {
	return fixify.NewModel(&data.Category{
		Name:        name,
		Description: name + " books",
	})
}

func bookFx(title string) *fixify.Model[data.Book] {
	return fixify.NewModel(&data.Book{Title: title},
		fixify.ConnectorFunc(func(t testing.TB, child *data.Book, parent *data.Category) {
			child.CategoryID = &parent.ID
		}),
	)
}

func studentFx(name string) *fixify.Model[data.Student] {
	return fixify.NewModel(&data.Student{
		Name:    name,
		Surname: "Tester",
		Grade:   3,
		Email:   name + "-" + uuid.NewString() + "@example.com",
	},
	)
}

func loanFx() *fixify.Model[data.Loan] {
	return fixify.NewModel(&data.Loan{},
		fixify.ConnectorFunc(func(t testing.TB, child *data.Loan, parent *data.Book) {
			child.BookID = parent.ID
		}),
		fixify.ConnectorFunc(func(t testing.TB, child *data.Loan, parent *data.Student) {
			child.StudentID = parent.ID
		}),
	)
}

// insertModel persists fixture models in topological order.
func insertModel(ctx context.Context) func(model any) error {
	return func(model any) error {
		switch v := model.(type) {
		case *data.Category:
			return models.Categories.Insert(ctx, v)
		case *data.Book:
			return models.Books.Insert(ctx, v)
		case *data.Student:
			return models.Students.Insert(ctx, v)
		case *data.Loan:
			return models.Loans.Insert(ctx, v)
		default:
			return fmt.Errorf("unknown fixture model %T", model)
		}
	}
}

func TestPricingScenario(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	fixture := fixify.New(t,
		categoryFx("Fiction-"+uuid.NewString()).With(
			bookFx("Dune").Bind(&book),
		),
	)
	fixture.Apply(insertModel(ctx))
	bookID := book.Value().ID

	// No price yet: a percentage change inserts nothing and is reported
	// distinctly from any constraint violation.
	err := models.Prices.RecordPercent(ctx, bookID, 50, nil)
	require.ErrorIs(t, err, data.ErrNoPriceOnFile)
	_, err = models.Prices.Current(ctx, bookID)
	require.ErrorIs(t, err, data.ErrNoPriceOnFile)

	// Record 10.00, then raise by 50%.
	require.NoError(t, models.Prices.Record(ctx, bookID, 10.00))
	require.NoError(t, models.Prices.RecordPercent(ctx, bookID, 50, nil))

	current, err := models.Prices.Current(ctx, bookID)
	require.NoError(t, err)
	assert.InDelta(t, 15.00, current.Price, 0.001)

	// History is newest-first and keeps the superseded entry.
	var history []data.PriceEntry
	for entry, err := range models.Prices.History(ctx, bookID) {
		require.NoError(t, err)
		history = append(history, entry)
	}
	require.Len(t, history, 2)
	assert.InDelta(t, 15.00, history[0].Price, 0.001)
	assert.InDelta(t, 10.00, history[1].Price, 0.001)
	assert.True(t, history[0].RecordedAt.After(history[1].RecordedAt))

	// The derived current price shows up on the book read too.
	got, err := models.Books.Get(ctx, bookID)
	require.NoError(t, err)
	require.NotNil(t, got.CurrentPrice)
	assert.InDelta(t, 15.00, *got.CurrentPrice, 0.001)
}

func TestAvailabilityFollowsOpenLoans(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	var loan *fixify.Model[data.Loan]
	fixture := fixify.New(t,
		categoryFx("Sci-Fi-"+uuid.NewString()).With(
			bookFx("Hyperion").Bind(&book).With(
				loanFx().Bind(&loan),
			),
		),
		studentFx("keats").With(loan),
	)
	fixture.Apply(insertModel(ctx))

	bookID := book.Value().ID

	// An open loan makes the book unavailable.
	available, err := models.Loans.BookAvailable(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, available)

	got, err := models.Books.Get(ctx, bookID)
	require.NoError(t, err)
	assert.False(t, got.Available)

	// Returning the book flips it back.
	require.NoError(t, models.Loans.Finalize(ctx, loan.Value().ID))

	available, err = models.Loans.BookAvailable(ctx, bookID)
	require.NoError(t, err)
	assert.True(t, available)

	// Finalizing twice is a reported no-op.
	err = models.Loans.Finalize(ctx, loan.Value().ID)
	assert.ErrorIs(t, err, data.ErrRecordNotFound)
}

func TestDeleteMissingIsReportedNoOp(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	assert.ErrorIs(t, models.Books.Delete(ctx, 9_999_999), data.ErrRecordNotFound)
	assert.ErrorIs(t, models.Categories.Delete(ctx, 9_999_999), data.ErrRecordNotFound)
	assert.ErrorIs(t, models.Students.Delete(ctx, 9_999_999), data.ErrRecordNotFound)
	assert.ErrorIs(t, models.Loans.Delete(ctx, 9_999_999), data.ErrRecordNotFound)
}

func TestEmptyChangeSetCommitsWithoutChanges(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	fixify.New(t,
		categoryFx("Essays-"+uuid.NewString()).With(bookFx("Meditations").Bind(&book)),
	).Apply(insertModel(ctx))

	err := models.Books.Update(ctx, book.Value().ID, nil, nil, nil)
	require.NoError(t, err)

	got, err := models.Books.Get(ctx, book.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, "Meditations", got.Title)
}

func TestPartialUpdateIsAtomic(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	fixify.New(t,
		categoryFx("Classics-"+uuid.NewString()).With(bookFx("Ulysses").Bind(&book)),
	).Apply(insertModel(ctx))
	bookID := book.Value().ID
	require.NoError(t, models.Prices.Record(ctx, bookID, 20.00))

	// Title, author and a new price in one interaction.
	changes := data.ChangeSet{}.
		SetString("title", "Ulysses (annotated)").
		SetString("author", "James Joyce")
	newPrice := 25.00
	require.NoError(t, models.Books.Update(ctx, bookID, changes, &newPrice, nil))

	got, err := models.Books.Get(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, "Ulysses (annotated)", got.Title)
	require.NotNil(t, got.Author)
	assert.Equal(t, "James Joyce", *got.Author)
	require.NotNil(t, got.CurrentPrice)
	assert.InDelta(t, 25.00, *got.CurrentPrice, 0.001)

	// The same interaction with a failing field persists nothing: the title
	// change is rolled back along with the rejected price.
	changes = data.ChangeSet{}.SetString("title", "Rolled Back")
	badPrice := -1.00
	err = models.Books.Update(ctx, bookID, changes, &badPrice, nil)

	var cerr *data.ConstraintError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintCheck, cerr.Kind)
	assert.Equal(t, "price", cerr.Column)

	got, err = models.Books.Get(ctx, bookID)
	require.NoError(t, err)
	assert.Equal(t, "Ulysses (annotated)", got.Title)
	assert.InDelta(t, 25.00, *got.CurrentPrice, 0.001)
}

func TestConstraintClassification(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	fixify.New(t,
		categoryFx("Poetry-"+uuid.NewString()).With(bookFx("Leaves of Grass").Bind(&book)),
	).Apply(insertModel(ctx))
	bookID := book.Value().ID

	isbn := "9780000000001"
	require.NoError(t, models.Books.Update(ctx, bookID, data.ChangeSet{}.SetString("isbn", isbn), nil, nil))

	var cerr *data.ConstraintError

	// Unique: a second book with the same ISBN.
	err := models.Books.Insert(ctx, &data.Book{Title: "Duplicate", ISBN: &isbn})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintUnique, cerr.Kind)
	assert.Equal(t, "isbn", cerr.Column)

	// Foreign key: a book pointing at a category that does not exist.
	missing := int64(9_999_999)
	err = models.Books.Insert(ctx, &data.Book{Title: "Orphan", CategoryID: &missing})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintForeignKey, cerr.Kind)
	assert.Equal(t, "category_id", cerr.Column)

	// Not null: clearing a required column in a partial update.
	err = models.Books.Update(ctx, bookID, data.ChangeSet{}.SetString("title", ""), nil, nil)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintNotNull, cerr.Kind)
	assert.Equal(t, "title", cerr.Column)

	// Check: a non-positive grade.
	err = models.Students.Insert(ctx, &data.Student{
		Name: "Zero", Surname: "Grade", Grade: 0,
		Email: "zero-" + uuid.NewString() + "@example.com",
	})
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintCheck, cerr.Kind)
	assert.Equal(t, "grade", cerr.Column)

	// Check: a non-positive price.
	err = models.Prices.Record(ctx, bookID, -5)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintCheck, cerr.Kind)
	assert.Equal(t, "price", cerr.Column)

	// Length: the server reports truncation without a column diagnostic.
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	err = models.Books.Update(ctx, bookID, data.ChangeSet{}.SetString("title", string(long)), nil, nil)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintStringTooLong, cerr.Kind)

	// Overflow: numeric(6,2) tops out below 10000.
	err = models.Prices.Record(ctx, bookID, 123456)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintNumericOverflow, cerr.Kind)

	// Referential integrity on delete: the book still has price entries.
	require.NoError(t, models.Prices.Record(ctx, bookID, 9.99))
	err = models.Books.Delete(ctx, bookID)
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, data.ConstraintForeignKey, cerr.Kind)
}

func TestPromoteAll(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var s1, s2 *fixify.Model[data.Student]
	fixify.New(t,
		studentFx("ana").Bind(&s1),
		studentFx("bruno").Bind(&s2),
	).Apply(insertModel(ctx))

	before1 := s1.Value().Grade
	before2 := s2.Value().Grade

	promoted, err := models.Students.PromoteAll(ctx, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, promoted, int64(2))

	got1, err := models.Students.Get(ctx, s1.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, before1+1, got1.Grade)

	got2, err := models.Students.Get(ctx, s2.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, before2+1, got2.Grade)
}

func TestSearchMatchesPartially(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	title := "Foundation " + uuid.NewString()
	var book *fixify.Model[data.Book]
	fixify.New(t,
		categoryFx("Saga-"+uuid.NewString()).With(bookFx(title).Bind(&book)),
	).Apply(insertModel(ctx))

	filters := data.Filters{Page: 1, PageSize: 20, Sort: "book_id", SortSafeList: []string{"book_id"}}
	books, metadata, err := models.Books.Search(ctx, title[:10], "", "", 0, 0, filters)
	require.NoError(t, err)
	require.GreaterOrEqual(t, metadata.TotalRecords, 1)

	found := false
	for _, b := range books {
		if b.ID == book.Value().ID {
			found = true
		}
	}
	assert.True(t, found)
}

// TestSerializationConflict interleaves two serializable sessions that both
// read the current price of the same book and derive a new one from it. The
// first committer wins; the second must abort with a serialization failure.
// A fresh percentage update afterwards re-reads the now-current price and
// commits cleanly, which is exactly what the retry protocol does on assent.
func TestSerializationConflict(t *testing.T) {
	skipUnlessIntegration(t)
	ctx := context.Background()

	var book *fixify.Model[data.Book]
	fixify.New(t,
		categoryFx("Contested-"+uuid.NewString()).With(bookFx("Dune Messiah").Bind(&book)),
	).Apply(insertModel(ctx))
	bookID := book.Value().ID
	require.NoError(t, models.Prices.Record(ctx, bookID, 100))

	readCurrent := func(tx *sql.Tx) float64 {
		t.Helper()
		var price float64
		err := tx.QueryRowContext(ctx,
			`SELECT price FROM book_prices WHERE book_id = $1 ORDER BY recorded_at DESC LIMIT 1`,
			bookID).Scan(&price)
		require.NoError(t, err)
		return price
	}

	opts := &sql.TxOptions{Isolation: sql.LevelSerializable}
	tx1, err := db.BeginTx(ctx, opts)
	require.NoError(t, err)
	tx2, err := db.BeginTx(ctx, opts)
	require.NoError(t, err)

	// Both sessions read price P = 100.
	p1 := readCurrent(tx1)
	p2 := readCurrent(tx2)
	assert.InDelta(t, p1, p2, 0.001)

	// Session one derives and commits first.
	_, err = tx1.ExecContext(ctx,
		`INSERT INTO book_prices (book_id, price) VALUES ($1, $2)`, bookID, p1*1.10)
	require.NoError(t, err)
	require.NoError(t, tx1.Commit())

	// Session two derives from its stale read; the storage engine must
	// refuse to serialize it, either at the write or at commit.
	_, err = tx2.ExecContext(ctx,
		`INSERT INTO book_prices (book_id, price) VALUES ($1, $2)`, bookID, p2*1.20)
	if err == nil {
		err = tx2.Commit()
	} else {
		tx2.Rollback()
	}
	require.Error(t, err)

	var pqErr *pq.Error
	require.True(t, errors.As(err, &pqErr), "expected a pq error, got %v", err)
	assert.Equal(t, "serialization_failure", pqErr.Code.Name())

	// The retried interaction derives from the winner's value.
	require.NoError(t, models.Prices.RecordPercent(ctx, bookID, 20, nil))
	current, err := models.Prices.Current(ctx, bookID)
	require.NoError(t, err)
	assert.InDelta(t, 100*1.10*1.20, current.Price, 0.01)
}
