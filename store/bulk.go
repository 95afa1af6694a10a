package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/giygas/drugbase-api/entities"
	"github.com/giygas/drugbase-api/logging"
)

// bulk statements insert rows with explicit identifiers and skip rows that
// already exist, so loading the same dataset twice is a no-op
type bulkQueries struct {
	manufacturer string
	disease      string
	generic      string
	drug         string
	drugAlt      string
	treatment    string
}

func newBulkQueries(d Dialect) bulkQueries {
	b := bulkQueries{
		manufacturer: `INSERT INTO Manufacturer (ManID, Name) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		disease:      `INSERT INTO Disease (DiseaseID, Name) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		generic:      `INSERT INTO Generics (GenID, Name, Price, Purpose) VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		drug:         `INSERT INTO NBDrugs (DrugID, Name, Price, Purpose, ManID) VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`,
		drugAlt:      `INSERT INTO DrugAlt (DrugID, GenID) VALUES (?, ?) ON CONFLICT DO NOTHING`,
		treatment:    `INSERT INTO Treatment (DiseaseID, DrugID, GenID) VALUES (?, ?, ?) ON CONFLICT DO NOTHING`,
	}
	for _, p := range []*string{&b.manufacturer, &b.disease, &b.generic, &b.drug, &b.drugAlt, &b.treatment} {
		*p = d.rebind(*p)
	}
	return b
}

// BulkLoad inserts a whole dataset in one transaction, parents before
// children. Records with a zero ID get a store-assigned id; records whose id
// already exists are skipped. A reference to a missing parent aborts the
// load with ErrConstraint and nothing is written. The load is bounded by the
// bulk timeout rather than the per query one.
func (s *Store) BulkLoad(ctx context.Context, ds entities.Dataset) (entities.LoadStats, error) {
	var stats entities.LoadStats
	b := newBulkQueries(s.dialect)

	err := s.writeWithin(ctx, "bulk_load", s.bulkTimeout, func(ctx context.Context, tx *sql.Tx) error {
		stats = entities.LoadStats{}
		l := loader{tx: tx}

		for _, m := range ds.Manufacturers {
			if m.ID == 0 {
				l.returning(ctx, &stats.Manufacturers, s.q.insertManufacturer, m.Name)
				continue
			}
			l.exec(ctx, &stats.Manufacturers, b.manufacturer, m.ID, m.Name)
		}
		for _, d := range ds.Diseases {
			if d.ID == 0 {
				l.returning(ctx, &stats.Diseases, s.q.insertDisease, d.Name)
				continue
			}
			l.exec(ctx, &stats.Diseases, b.disease, d.ID, d.Name)
		}
		for _, g := range ds.Generics {
			if g.ID == 0 {
				l.returning(ctx, &stats.Generics, s.q.insertGeneric, g.Name, g.Price, g.Purpose)
				continue
			}
			l.exec(ctx, &stats.Generics, b.generic, g.ID, g.Name, g.Price, g.Purpose)
		}
		for _, d := range ds.Drugs {
			if d.ID == 0 {
				l.returning(ctx, &stats.Drugs, s.q.insertDrug, d.Name, d.Price, d.Purpose, d.ManID)
				continue
			}
			l.exec(ctx, &stats.Drugs, b.drug, d.ID, d.Name, d.Price, d.Purpose, d.ManID)
		}
		for _, a := range ds.DrugAlts {
			l.exec(ctx, &stats.DrugAlts, b.drugAlt, a.DrugID, a.GenID)
		}
		for _, t := range ds.Treatments {
			l.exec(ctx, &stats.Treatments, b.treatment, t.DiseaseID, t.DrugID, t.GenID)
		}
		if l.err != nil {
			return l.err
		}

		if s.dialect == Postgres {
			return resyncIdentities(ctx, tx)
		}
		return nil
	})
	if err != nil {
		return entities.LoadStats{}, err
	}

	logging.Debug("bulk load finished", "records", ds.Len(), "inserted", stats.Total())
	return stats, nil
}

// loader keeps the first error and turns every later call into a no-op
type loader struct {
	tx  *sql.Tx
	err error
}

func (l *loader) exec(ctx context.Context, counter *int64, query string, args ...any) {
	if l.err != nil {
		return
	}
	res, err := l.tx.ExecContext(ctx, query, args...)
	if err != nil {
		l.err = err
		return
	}
	n, err := res.RowsAffected()
	if err != nil {
		l.err = err
		return
	}
	*counter += n
}

func (l *loader) returning(ctx context.Context, counter *int64, query string, args ...any) {
	if l.err != nil {
		return
	}
	var id int64
	if err := l.tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		l.err = err
		return
	}
	*counter++
}

// resyncIdentities moves every identity sequence past the largest stored id.
// Explicit ids do not advance a Postgres identity, so without this the next
// store-assigned id would collide.
func resyncIdentities(ctx context.Context, tx *sql.Tx) error {
	for _, c := range identityColumns {
		if _, err := tx.ExecContext(ctx, resyncStatement(c[0], c[1])); err != nil {
			return fmt.Errorf("resync %s identity: %w", c[0], err)
		}
	}
	return nil
}

// resyncStatement renders the setval call for one identity column.
// pg_get_serial_sequence takes its arguments as identifiers in text form and
// keeps their case, while the unquoted DDL folded the names to lower case.
func resyncStatement(table, column string) string {
	t, c := strings.ToLower(table), strings.ToLower(column)
	return fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', '%s'), COALESCE((SELECT MAX(%s) FROM %s), 0) + 1, false)`,
		t, c, c, t)
}
