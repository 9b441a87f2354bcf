// Package seed fills the stores with plausible demo data.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/transaction"
)

type Options struct {
	Patients     int
	Appointments int
	Expenses     int
	// Around is the day the generated schedule is centred on.
	Around time.Time
	// Seed makes the data reproducible; 0 picks a random one.
	Seed uint64
}

type Result struct {
	Appointments int
	Transactions int
}

type patient struct {
	id    int64
	name  string
	phone string
	email string
}

var sessionPrices = []int64{120, 150, 180, 200}

var expenseCategories = []transaction.Category{
	transaction.CategoryRent, transaction.CategoryUtilities, transaction.CategorySupplies,
	transaction.CategorySoftware, transaction.CategoryMarketing, transaction.CategoryEducation,
}

// Run books appointments across the weeks around opts.Around, moves past
// ones through their lifecycle and records the matching income plus some
// expenses.
func Run(ctx context.Context, appointments *appointment.Store, ledger *transaction.Store, opts Options, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Around.IsZero() {
		opts.Around = time.Now()
	}
	faker := gofakeit.New(opts.Seed)

	patients := make([]patient, opts.Patients)
	for i := range patients {
		patients[i] = patient{
			id:    int64(i + 1),
			name:  faker.Name(),
			phone: faker.Phone(),
			email: faker.Email(),
		}
	}
	if len(patients) == 0 {
		patients = append(patients, patient{id: 1, name: faker.Name(), email: faker.Email()})
	}

	var res Result
	today := isodate.Format(opts.Around)
	for i := 0; i < opts.Appointments; i++ {
		p := patients[faker.Number(0, len(patients)-1)]
		day := opts.Around.AddDate(0, 0, faker.Number(-21, 21))
		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			day = day.AddDate(0, 0, 2)
		}
		modality := appointment.ModalityInPerson
		if faker.Bool() {
			modality = appointment.ModalityOnline
		}
		kind := appointment.TypeFollowUp
		if faker.Number(1, 5) == 1 {
			kind = appointment.TypeInitial
		}

		a, err := appointments.Create(ctx, appointment.NewAppointment{
			PatientID: p.id,
			Patient:   appointment.PatientSnapshot{Name: p.name, Phone: p.phone, Email: p.email},
			Date:      isodate.Format(day),
			Time:      isodate.FormatClock(faker.Number(8, 17) * 60),
			Duration:  50,
			Type:      kind,
			Modality:  modality,
			Price:     decimal.NewFromInt(sessionPrices[faker.Number(0, len(sessionPrices)-1)]),
		})
		if err != nil {
			return res, fmt.Errorf("seed appointment %d: %w", i, err)
		}
		res.Appointments++

		if a.Date >= today {
			if faker.Bool() {
				if _, err := appointments.Confirm(ctx, a.ID); err != nil {
					return res, err
				}
			}
			continue
		}

		n, err := settlePast(ctx, appointments, ledger, faker, a)
		if err != nil {
			return res, fmt.Errorf("seed appointment %d: %w", a.ID, err)
		}
		res.Transactions += n
	}

	for i := 0; i < opts.Expenses; i++ {
		day := opts.Around.AddDate(0, 0, -faker.Number(0, 30))
		category := expenseCategories[faker.Number(0, len(expenseCategories)-1)]
		_, err := ledger.Create(ctx, transaction.NewTransaction{
			Category:      category,
			Description:   fmt.Sprintf("%s - %s", category, faker.Company()),
			Amount:        decimal.NewFromFloat(faker.Float64Range(30, 900)).Round(2),
			Date:          isodate.Format(day),
			Status:        transaction.StatusCompleted,
			PaymentMethod: transaction.MethodBankTransfer,
		})
		if err != nil {
			return res, fmt.Errorf("seed expense %d: %w", i, err)
		}
		res.Transactions++
	}

	logger.Info("seed complete",
		zap.Int("appointments", res.Appointments),
		zap.Int("transactions", res.Transactions),
	)
	return res, nil
}

// settlePast walks a past appointment to a final state. Completed sessions
// are mostly paid, each payment booked as session income.
func settlePast(ctx context.Context, appointments *appointment.Store, ledger *transaction.Store, faker *gofakeit.Faker, a *appointment.Appointment) (int, error) {
	roll := faker.Number(1, 10)
	if roll == 1 {
		_, err := appointments.Cancel(ctx, a.ID, "patient rescheduled")
		return 0, err
	}
	if _, err := appointments.Confirm(ctx, a.ID); err != nil {
		return 0, err
	}
	if roll == 2 {
		_, err := appointments.MarkNoShow(ctx, a.ID)
		return 0, err
	}
	if _, err := appointments.Complete(ctx, a.ID); err != nil {
		return 0, err
	}
	if roll == 3 {
		return 0, nil
	}

	paymentID := "seed_" + faker.UUID()
	if _, err := appointments.MarkPaid(ctx, a.ID, paymentID); err != nil {
		return 0, err
	}
	appointmentID, patientID := a.ID, a.PatientID
	_, err := ledger.Create(ctx, transaction.NewTransaction{
		Category:      transaction.CategorySession,
		Description:   fmt.Sprintf("Session %s - %s %s", a.Patient.Name, a.Date, a.Time),
		Amount:        a.Price,
		Date:          a.Date,
		Status:        transaction.StatusCompleted,
		PaymentMethod: transaction.MethodPix,
		AppointmentID: &appointmentID,
		PatientID:     &patientID,
		Tags:          []string{"session", string(a.Modality)},
	})
	if err != nil {
		return 0, err
	}
	return 1, nil
}
