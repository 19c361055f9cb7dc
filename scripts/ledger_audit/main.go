// Command ledger_audit scans the fee ledger for records whose stored
// balance no longer matches expected_amount - paid_amount, and for
// scholarship students still carrying a positive expected amount. It is
// meant to be run from cron or by hand after bulk data loads; a nonzero
// exit code means at least one drifted record was found.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/classforge/school-api/pkg/config"
	"github.com/classforge/school-api/pkg/database"
)

type driftRow struct {
	TenantID       string  `db:"tenant_id"`
	RecordID       string  `db:"id"`
	StudentID      string  `db:"student_id"`
	ExpectedAmount float64 `db:"expected_amount"`
	PaidAmount     float64 `db:"paid_amount"`
	Balance        float64 `db:"balance"`
}

type scholarshipRow struct {
	TenantID       string  `db:"tenant_id"`
	RecordID       string  `db:"id"`
	StudentID      string  `db:"student_id"`
	ExpectedAmount float64 `db:"expected_amount"`
}

func main() {
	var (
		tenantID string
		timeout  time.Duration
	)
	flag.StringVar(&tenantID, "tenant", "", "Restrict the audit to a single tenant ID (default: all tenants)")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Query timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	drifted, err := findDrift(ctx, db, tenantID)
	if err != nil {
		log.Fatalf("drift query failed: %v", err)
	}
	unrepaired, err := findUnrepairedScholarships(ctx, db, tenantID)
	if err != nil {
		log.Fatalf("scholarship query failed: %v", err)
	}

	printReport(drifted, unrepaired)

	fmt.Printf("Drifted balances: %d, Unrepaired scholarship records: %d\n", len(drifted), len(unrepaired))
	if len(drifted) > 0 {
		os.Exit(1)
	}
}

type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func findDrift(ctx context.Context, db queryer, tenantID string) ([]driftRow, error) {
	// Float equality is intentional here: every write path computes
	// balance as expected_amount - paid_amount in SQL, so any bitwise
	// difference means a write bypassed the ledger.
	query := `SELECT tenant_id, id, student_id, expected_amount, paid_amount, balance
	FROM fee_records
	WHERE balance <> expected_amount - paid_amount`
	args := []interface{}{}
	if tenantID != "" {
		query += ` AND tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY tenant_id, id`

	var rows []driftRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func findUnrepairedScholarships(ctx context.Context, db queryer, tenantID string) ([]scholarshipRow, error) {
	query := `SELECT fr.tenant_id, fr.id, fr.student_id, fr.expected_amount
	FROM fee_records fr
	JOIN students s ON s.id = fr.student_id AND s.tenant_id = fr.tenant_id
	WHERE s.is_scholarship = TRUE AND fr.expected_amount > 0`
	args := []interface{}{}
	if tenantID != "" {
		query += ` AND fr.tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` ORDER BY fr.tenant_id, fr.id`

	var rows []scholarshipRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

func printReport(drifted []driftRow, unrepaired []scholarshipRow) {
	fmt.Println("Fee Ledger Audit Report")
	fmt.Println("=======================")
	if len(drifted) == 0 && len(unrepaired) == 0 {
		fmt.Println("No inconsistencies found.")
		return
	}
	for _, row := range drifted {
		fmt.Printf("[DRIFT] tenant=%s record=%s student=%s\n", row.TenantID, row.RecordID, row.StudentID)
		fmt.Printf("  expected=%.2f paid=%.2f stored_balance=%.2f computed_balance=%.2f\n",
			row.ExpectedAmount, row.PaidAmount, row.Balance, row.ExpectedAmount-row.PaidAmount)
	}
	for _, row := range unrepaired {
		fmt.Printf("[SCHOLARSHIP] tenant=%s record=%s student=%s expected=%.2f\n",
			row.TenantID, row.RecordID, row.StudentID, row.ExpectedAmount)
		fmt.Println("  run POST /fee-records/repair-scholarships for this tenant")
	}
}
