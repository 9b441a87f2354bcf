package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/hackgods/practice-scheduling-billing/internal/appointment"
	"github.com/hackgods/practice-scheduling-billing/internal/config"
	"github.com/hackgods/practice-scheduling-billing/internal/isodate"
	"github.com/hackgods/practice-scheduling-billing/internal/logger"
	"github.com/hackgods/practice-scheduling-billing/internal/payment"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	ConfirmRatio  float64
	CheckoutRatio float64
	ReadRatio     float64
	Patients      int
}

type patient struct {
	ID       int64
	Snapshot appointment.PatientSnapshot
}

// DataPool holds the generated patients and the ids of appointments booked
// during the run.
type DataPool struct {
	Patients     []patient
	mu           sync.RWMutex
	appointments []int64
}

func (dp *DataPool) AddAppointment(id int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, id)
}

func (dp *DataPool) GetRandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	pct := func(p int) time.Duration {
		idx := len(latencies) * p / 100
		if idx >= len(latencies) {
			idx = len(latencies) - 1
		}
		return latencies[idx]
	}
	return sum / time.Duration(len(latencies)), latencies[0], latencies[len(latencies)-1], pct(50), pct(95)
}

type Metrics struct {
	Booking       OperationMetrics
	Confirm       OperationMetrics
	Checkout      OperationMetrics
	ReadByID      OperationMetrics
	ListByPatient OperationMetrics
	CalendarWeek  OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *resty.Client
	logger  *zap.Logger
	metrics Metrics
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.Must(baseCfg.LogLevel, "console", "simulate")
	defer func() { _ = log.Sync() }()

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatal("invalid config", zap.Error(err))
	}
	log.Info("simulator starting",
		zap.Duration("duration", cfg.Duration),
		zap.Int("workers", cfg.Workers),
		zap.Float64("booking", cfg.BookingRatio),
		zap.Float64("confirm", cfg.ConfirmRatio),
		zap.Float64("checkout", cfg.CheckoutRatio),
		zap.Float64("read", cfg.ReadRatio),
	)

	sim := &Simulator{
		config: cfg,
		pool:   newDataPool(cfg.Patients),
		client: resty.New().
			SetBaseURL(strings.TrimRight(cfg.APIBaseURL, "/")).
			SetTimeout(10 * time.Second).
			SetHeader("Content-Type", "application/json"),
		logger: log,
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.4),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.2),
		CheckoutRatio: getFloat("SIM_CHECKOUT_RATIO", 0.1),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		Patients:      getInt("SIM_PATIENTS", 200),
	}

	// Normalize ratios
	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.CheckoutRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.CheckoutRatio /= total
		cfg.ReadRatio /= total
	}
	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 {
		return fmt.Errorf("SIM_PATIENTS must be > 0")
	}
	return nil
}

func newDataPool(n int) *DataPool {
	dp := &DataPool{Patients: make([]patient, n)}
	for i := range dp.Patients {
		dp.Patients[i] = patient{
			ID: int64(i + 1),
			Snapshot: appointment.PatientSnapshot{
				Name:  gofakeit.Name(),
				Phone: gofakeit.Phone(),
				Email: gofakeit.Email(),
			},
		}
	}
	return dp
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.logger.Info("starting simulation")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	s.logger.Info("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	c := s.config

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < c.BookingRatio:
				s.doBooking(ctx, rng)
			case r < c.BookingRatio+c.ConfirmRatio:
				s.doConfirm(ctx, rng)
			case r < c.BookingRatio+c.ConfirmRatio+c.CheckoutRatio:
				s.doCheckout(ctx, rng)
			default:
				switch rng.Intn(3) {
				case 0:
					s.doReadByID(ctx, rng)
				case 1:
					s.doListByPatient(ctx, rng)
				case 2:
					s.doCalendarWeek(ctx, rng)
				}
			}
		}
	}
}

// record classifies the outcome of a call. 409 is an expected conflict under
// concurrent load: a repeated transition or an in-flight action.
func record(om *OperationMetrics, start time.Time, resp *resty.Response, err error, want int) {
	latency := time.Since(start)
	if err != nil {
		om.Record(latency, false, false)
		return
	}
	om.Record(latency, resp.StatusCode() == want, resp.StatusCode() == http.StatusConflict)
}

func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	day := time.Now().AddDate(0, 0, rng.Intn(28))
	body := appointment.NewAppointment{
		PatientID: p.ID,
		Patient:   p.Snapshot,
		Date:      isodate.Format(day),
		Time:      isodate.FormatClock((8 + rng.Intn(10)) * 60),
		Duration:  50,
		Type:      appointment.TypeFollowUp,
		Modality:  appointment.ModalityOnline,
		Price:     decimal.NewFromInt(150),
	}

	var created appointment.Appointment
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).SetBody(body).SetResult(&created).Post("/appointments")
	record(&s.metrics.Booking, start, resp, err, http.StatusCreated)
	if err == nil && resp.StatusCode() == http.StatusCreated && created.ID != 0 {
		s.pool.AddAppointment(created.ID)
	}
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Post(fmt.Sprintf("/appointments/%d/confirm", id))
	record(&s.metrics.Confirm, start, resp, err, http.StatusOK)
}

func (s *Simulator) doCheckout(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	methods := []payment.Method{payment.MethodPix, payment.MethodCreditCard, payment.MethodDebitCard}
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).
		SetBody(map[string]payment.Method{"paymentMethod": methods[rng.Intn(len(methods))]}).
		Post(fmt.Sprintf("/appointments/%d/checkout", id))
	record(&s.metrics.Checkout, start, resp, err, http.StatusOK)
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.GetRandomAppointment(rng)
	if !ok {
		return
	}
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Get(fmt.Sprintf("/appointments/%d", id))
	record(&s.metrics.ReadByID, start, resp, err, http.StatusOK)
}

func (s *Simulator) doListByPatient(ctx context.Context, rng *rand.Rand) {
	p := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).
		SetQueryParam("patientId", strconv.FormatInt(p.ID, 10)).
		Get("/appointments")
	record(&s.metrics.ListByPatient, start, resp, err, http.StatusOK)
}

func (s *Simulator) doCalendarWeek(ctx context.Context, rng *rand.Rand) {
	day := time.Now().AddDate(0, 0, rng.Intn(28))
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).
		SetQueryParams(map[string]string{"view": "week", "date": isodate.Format(day)}).
		Get("/calendar")
	record(&s.metrics.CalendarWeek, start, resp, err, http.StatusOK)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Checkout", &s.metrics.Checkout)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by Patient", &s.metrics.ListByPatient)
	printOperationReport("Calendar week", &s.metrics.CalendarWeek)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
