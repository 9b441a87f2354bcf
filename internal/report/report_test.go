package report_test

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/report"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func cell(t *testing.T, f *excelize.File, sheet, ref string) string {
	t.Helper()
	v, err := f.GetCellValue(sheet, ref, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	return v
}

func TestAppointmentsXLSX(t *testing.T) {
	items := []appointment.Appointment{
		{ID: 1, Date: "2025-09-25", Time: "14:00", Patient: appointment.PatientSnapshot{Name: "Ana Lima"},
			Status: appointment.StatusCompleted, PaymentStatus: appointment.PaymentPaid, Price: decimal.NewFromInt(150), Duration: 50},
		{ID: 2, Date: "2025-09-26", Time: "09:00", Patient: appointment.PatientSnapshot{Name: "Bruno Reis"},
			Status: appointment.StatusCompleted, PaymentStatus: appointment.PaymentPending, Price: decimal.NewFromInt(120), Duration: 50},
		{ID: 3, Date: "2025-09-27", Time: "10:00", Patient: appointment.PatientSnapshot{Name: "Carla Dias"},
			Status: appointment.StatusCancelled, PaymentStatus: appointment.PaymentCancelled, Price: decimal.NewFromInt(100), Duration: 50},
	}

	data, err := report.AppointmentsXLSX(items)
	require.NoError(t, err)
	f := open(t, data)

	require.Equal(t, []string{report.AppointmentsSheet}, f.GetSheetList())
	require.Equal(t, "ID", cell(t, f, report.AppointmentsSheet, "A1"))
	require.Equal(t, "Price", cell(t, f, report.AppointmentsSheet, "J1"))
	require.Equal(t, "Ana Lima", cell(t, f, report.AppointmentsSheet, "D2"))
	require.Equal(t, "cancelled", cell(t, f, report.AppointmentsSheet, "H4"))
	require.Equal(t, "120", cell(t, f, report.AppointmentsSheet, "J3"))

	// Row 5 is left blank before the totals.
	require.Empty(t, cell(t, f, report.AppointmentsSheet, "J5"))
	require.Equal(t, "Billed", cell(t, f, report.AppointmentsSheet, "I6"))
	require.Equal(t, "270", cell(t, f, report.AppointmentsSheet, "J6"))
	require.Equal(t, "Received", cell(t, f, report.AppointmentsSheet, "I7"))
	require.Equal(t, "150", cell(t, f, report.AppointmentsSheet, "J7"))
	require.Equal(t, "Outstanding", cell(t, f, report.AppointmentsSheet, "I8"))
	require.Equal(t, "120", cell(t, f, report.AppointmentsSheet, "J8"))
}

func TestTransactionsXLSX(t *testing.T) {
	items := []transaction.Transaction{
		{ID: 1, Date: "2025-09-01", Type: transaction.TypeIncome, Category: transaction.CategorySession,
			Description: "Session Ana", Status: transaction.StatusCompleted, Amount: decimal.RequireFromString("150.50")},
		{ID: 2, Date: "2025-09-05", Type: transaction.TypeExpense, Category: transaction.CategoryRent,
			Description: "Office rent", Status: transaction.StatusCompleted, Amount: decimal.NewFromInt(100)},
		{ID: 3, Date: "2025-09-06", Type: transaction.TypeIncome, Category: transaction.CategoryWorkshop,
			Description: "Workshop", Status: transaction.StatusPending, Amount: decimal.NewFromInt(900)},
	}

	data, err := report.TransactionsXLSX(items)
	require.NoError(t, err)
	f := open(t, data)

	rows, err := f.GetRows(report.TransactionsSheet)
	require.NoError(t, err)
	require.Equal(t, []string{"ID", "Date", "Type", "Category", "Description", "Status", "Method", "Amount"}, rows[0])
	require.Equal(t, "Office rent", rows[2][4])

	require.Equal(t, "150.5", cell(t, f, report.TransactionsSheet, "H2"))
	require.Equal(t, "Income", cell(t, f, report.TransactionsSheet, "G6"))
	require.Equal(t, "150.5", cell(t, f, report.TransactionsSheet, "H6"))
	require.Equal(t, "Expense", cell(t, f, report.TransactionsSheet, "G7"))
	require.Equal(t, "100", cell(t, f, report.TransactionsSheet, "H7"))
	require.Equal(t, "Balance", cell(t, f, report.TransactionsSheet, "G8"))
	require.Equal(t, "50.5", cell(t, f, report.TransactionsSheet, "H8"))
}

func TestEmptyExportStillHasHeaderAndTotals(t *testing.T) {
	data, err := report.TransactionsXLSX(nil)
	require.NoError(t, err)
	f := open(t, data)
	require.Equal(t, "Amount", cell(t, f, report.TransactionsSheet, "H1"))
	require.Equal(t, "Balance", cell(t, f, report.TransactionsSheet, "G5"))
	require.Equal(t, "0", cell(t, f, report.TransactionsSheet, "H5"))
}
