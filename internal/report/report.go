// Package report renders appointments and transactions as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

const (
	AppointmentsSheet = "Appointments"
	TransactionsSheet = "Transactions"
	ContentType       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type column[T any] struct {
	title string
	width float64
	money bool
	value func(T) any
}

type total struct {
	label string
	value decimal.Decimal
}

var appointmentColumns = []column[appointment.Appointment]{
	{title: "ID", width: 8, value: func(a appointment.Appointment) any { return a.ID }},
	{title: "Date", width: 12, value: func(a appointment.Appointment) any { return a.Date }},
	{title: "Time", width: 8, value: func(a appointment.Appointment) any { return a.Time }},
	{title: "Patient", width: 28, value: func(a appointment.Appointment) any { return a.Patient.Name }},
	{title: "Type", width: 12, value: func(a appointment.Appointment) any { return string(a.Type) }},
	{title: "Modality", width: 12, value: func(a appointment.Appointment) any { return string(a.Modality) }},
	{title: "Duration", width: 10, value: func(a appointment.Appointment) any { return a.Duration }},
	{title: "Status", width: 12, value: func(a appointment.Appointment) any { return string(a.Status) }},
	{title: "Payment", width: 12, value: func(a appointment.Appointment) any { return string(a.PaymentStatus) }},
	{title: "Price", width: 12, money: true, value: func(a appointment.Appointment) any { return a.Price }},
}

var transactionColumns = []column[transaction.Transaction]{
	{title: "ID", width: 8, value: func(t transaction.Transaction) any { return t.ID }},
	{title: "Date", width: 12, value: func(t transaction.Transaction) any { return t.Date }},
	{title: "Type", width: 10, value: func(t transaction.Transaction) any { return string(t.Type) }},
	{title: "Category", width: 14, value: func(t transaction.Transaction) any { return string(t.Category) }},
	{title: "Description", width: 36, value: func(t transaction.Transaction) any { return t.Description }},
	{title: "Status", width: 12, value: func(t transaction.Transaction) any { return string(t.Status) }},
	{title: "Method", width: 14, value: func(t transaction.Transaction) any { return string(t.PaymentMethod) }},
	{title: "Amount", width: 12, money: true, value: func(t transaction.Transaction) any { return t.Amount }},
}

// AppointmentsXLSX writes one row per appointment followed by the billed
// total and the revenue actually received.
func AppointmentsXLSX(items []appointment.Appointment) ([]byte, error) {
	billed := decimal.Zero
	for _, a := range items {
		if a.Active() {
			billed = billed.Add(a.Price)
		}
	}
	stats := appointment.ComputeStats(items)
	return build(AppointmentsSheet, appointmentColumns, items, []total{
		{label: "Billed", value: billed},
		{label: "Received", value: stats.TotalRevenue},
		{label: "Outstanding", value: stats.PendingRevenue},
	})
}

// TransactionsXLSX writes one row per transaction followed by the completed
// income, expense and balance.
func TransactionsXLSX(items []transaction.Transaction) ([]byte, error) {
	sum := transaction.Summarize(items)
	return build(TransactionsSheet, transactionColumns, items, []total{
		{label: "Income", value: sum.TotalIncome},
		{label: "Expense", value: sum.TotalExpense},
		{label: "Balance", value: sum.Balance},
	})
}

func build[T any](sheet string, cols []column[T], rows []T, totals []total) (out []byte, err error) {
	f := excelize.NewFile()
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close workbook: %w", cerr)
		}
	}()

	if _, err := f.NewSheet(sheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}
	index, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("locate sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	numFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return nil, fmt.Errorf("money style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, CustomNumFmt: &numFmt})
	if err != nil {
		return nil, fmt.Errorf("total style: %w", err)
	}

	moneyCol := len(cols)
	for i, c := range cols {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return nil, fmt.Errorf("column width: %w", err)
		}
		if err := setCell(f, sheet, i+1, 1, c.title, headerStyle); err != nil {
			return nil, err
		}
		if c.money {
			moneyCol = i + 1
		}
	}

	for r, item := range rows {
		row := r + 2
		for i, c := range cols {
			v := c.value(item)
			style := 0
			if d, ok := v.(decimal.Decimal); ok {
				v, style = d.InexactFloat64(), moneyStyle
			}
			if err := setCell(f, sheet, i+1, row, v, style); err != nil {
				return nil, err
			}
		}
	}

	// One blank row, then the totals under the money column.
	row := len(rows) + 3
	for _, t := range totals {
		if err := setCell(f, sheet, moneyCol-1, row, t.label, totalStyle); err != nil {
			return nil, err
		}
		if err := setCell(f, sheet, moneyCol, row, t.value.InexactFloat64(), totalStyle); err != nil {
			return nil, err
		}
		row++
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setCell(f *excelize.File, sheet string, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(sheet, cell, value); err != nil {
		return fmt.Errorf("set %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return fmt.Errorf("style %s: %w", cell, err)
		}
	}
	return nil
}
