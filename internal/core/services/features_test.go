package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-labs/insurance-calc/internal/adapters/driven/auth"
	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
	"github.com/custodia-labs/insurance-calc/internal/seed"
)

const featureSecret = "feature-secret"

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

// syncDispatcher publishes on the caller's goroutine so steps can assert
// on the audit lines right after the service returns
type syncDispatcher struct {
	publisher driving.AuditPublisher
}

func (d syncDispatcher) Dispatch(ctx context.Context, batch domain.AuditBatch) {
	d.publisher.PublishBatch(ctx, batch)
}

// featureWorld holds the state of one scenario
type featureWorld struct {
	now      time.Time
	users    *mocks.MockCredentialStore
	rates    *mocks.MockRateStore
	producer *mocks.MockEventProducer
	lock     *mocks.MockDistributedLock
	signer   *auth.TokenSigner

	authService      driving.AuthService
	insuranceService driving.InsuranceService

	seed     *domain.SeedData
	login    *domain.LoginResponse
	uploaded []*domain.InsuranceRate
	calc     *domain.Calculation
	lastErr  error
}

func (w *featureWorld) reset() error {
	w.now = time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	w.users = mocks.NewMockCredentialStore()
	w.rates = mocks.NewMockRateStore()
	w.producer = mocks.NewMockEventProducer(map[string][]int{domain.AuditTopicInsurance: {0}})
	w.lock = mocks.NewMockDistributedLock()

	signer, err := auth.NewTokenSigner(featureSecret, "HS256",
		auth.WithTTL(time.Hour),
		auth.WithClock(func() time.Time { return w.now }),
	)
	if err != nil {
		return err
	}
	w.signer = signer

	publisher := NewAuditPublisher(AuditPublisherConfig{
		Producer: w.producer,
		Now:      func() time.Time { return w.now },
	})
	w.authService = NewAuthService(w.users, auth.NewHasherWithCost(bcrypt.MinCost, 1), w.signer)
	w.insuranceService = NewInsuranceService(w.rates, w.rates, syncDispatcher{publisher: publisher})

	w.seed = nil
	w.login = nil
	w.uploaded = nil
	w.calc = nil
	w.lastErr = nil
	return nil
}

// Auth steps

func (w *featureWorld) theRoles(table *godog.Table) error {
	for _, row := range table.Rows[1:] {
		id, err := strconv.ParseInt(row.Cells[0].Value, 10, 64)
		if err != nil {
			return err
		}
		if _, err := w.authService.UpsertRole(context.Background(), id, row.Cells[1].Value); err != nil {
			return err
		}
	}
	return nil
}

func (w *featureWorld) aUser(state, username, password, role string) error {
	_, err := w.authService.CreateUser(context.Background(), domain.CreateUserRequest{
		Username: username,
		Password: password,
		RoleName: role,
		IsActive: state == "active",
	})
	return err
}

func (w *featureWorld) userLogsIn(username, password string) error {
	w.login, w.lastErr = w.authService.Login(context.Background(), domain.LoginRequest{
		Username: username,
		Password: password,
	})
	return nil
}

func (w *featureWorld) theLoginSucceeds() error {
	if w.lastErr != nil {
		return fmt.Errorf("expected login to succeed, got %v", w.lastErr)
	}
	if w.login == nil || w.login.AccessToken == "" {
		return errors.New("expected an access token")
	}
	return nil
}

func (w *featureWorld) tokenSubjectIsIDOf(username string) error {
	user, err := w.users.FindByUsername(context.Background(), username)
	if err != nil {
		return err
	}
	claims, err := w.signer.Parse(w.login.AccessToken)
	if err != nil {
		return err
	}
	if want := strconv.FormatInt(user.ID, 10); claims.Subject != want {
		return fmt.Errorf("expected subject %s, got %s", want, claims.Subject)
	}
	return nil
}

func (w *featureWorld) expiredTokenIsValidated(username string, seconds int) error {
	user, err := w.users.FindByUsername(context.Background(), username)
	if err != nil {
		return err
	}

	// Issued one TTL plus the given seconds ago, so exp = now - seconds
	issuedAt := w.now.Add(-time.Hour - time.Duration(seconds)*time.Second)
	past, err := auth.NewTokenSigner(featureSecret, "HS256",
		auth.WithTTL(time.Hour),
		auth.WithClock(func() time.Time { return issuedAt }),
	)
	if err != nil {
		return err
	}
	token, _, err := past.Issue(user.ID, user.Username, user.RoleName())
	if err != nil {
		return err
	}

	_, w.lastErr = w.authService.ValidateToken(context.Background(), token)
	return nil
}

func (w *featureWorld) tamperedTokenIsValidated(username string) error {
	user, err := w.users.FindByUsername(context.Background(), username)
	if err != nil {
		return err
	}
	token, _, err := w.signer.Issue(user.ID, user.Username, user.RoleName())
	if err != nil {
		return err
	}

	_, w.lastErr = w.authService.ValidateToken(context.Background(), tamperSignature(token))
	return nil
}

// tamperSignature flips the first signature character, which carries a
// full six bits of the signature
func tamperSignature(token string) string {
	b := []byte(token)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] != '.' {
			continue
		}
		if b[i+1] == 'A' {
			b[i+1] = 'B'
		} else {
			b[i+1] = 'A'
		}
		break
	}
	return string(b)
}

// Insurance steps

func (w *featureWorld) rateIsUpserted(rate float64, cargoType, date string) error {
	_, err := w.insuranceService.Upsert(context.Background(), date, cargoType, rate)
	return err
}

func (w *featureWorld) storedRates(n int) error {
	if got := w.rates.Count(); got != n {
		return fmt.Errorf("expected %d stored rates, got %d", n, got)
	}
	return nil
}

func (w *featureWorld) theStoreFailsInserts() error {
	w.rates.InsertManyErr = errors.New("insert failed")
	return nil
}

func (w *featureWorld) userUploads(actorID int64, table *godog.Table) error {
	var payload domain.UploadPayload
	for _, row := range table.Rows[1:] {
		rate, err := strconv.ParseFloat(row.Cells[2].Value, 64)
		if err != nil {
			return err
		}
		payload = appendRate(payload, row.Cells[0].Value, domain.RateItem{
			CargoType: row.Cells[1].Value,
			Rate:      rate,
		})
	}

	w.uploaded, w.lastErr = w.insuranceService.BatchCreate(context.Background(), actorID, payload)
	return nil
}

// appendRate adds item under date, keeping first-seen date order
func appendRate(p domain.UploadPayload, date string, item domain.RateItem) domain.UploadPayload {
	for i := range p {
		if p[i].Date == date {
			p[i].Items = append(p[i].Items, item)
			return p
		}
	}
	return append(p, domain.DateRates{Date: date, Items: []domain.RateItem{item}})
}

func (w *featureWorld) theUploadFails() error {
	if w.lastErr == nil {
		return errors.New("expected the upload to fail")
	}
	return nil
}

func (w *featureWorld) auditLinesPublished(n int, actorID int64) error {
	var messages []domain.AuditMessage
	for _, batch := range w.producer.SentBatches() {
		messages = append(messages, batch.Messages...)
	}
	if len(messages) != n {
		return fmt.Errorf("expected %d audit lines, got %d", n, len(messages))
	}
	if len(w.uploaded) != n {
		return fmt.Errorf("expected %d uploaded rows, got %d", n, len(w.uploaded))
	}
	for i, msg := range messages {
		want := domain.FormatAuditLine(domain.AuditCreated, actorID, domain.AuditEntityInsurance, w.uploaded[i].ID, msg.Time)
		if string(msg.Value) != want {
			return fmt.Errorf("audit line %d: expected %q, got %q", i, want, msg.Value)
		}
	}
	return nil
}

func (w *featureWorld) rateOfRowIsUpdated(id int64, newRate float64) error {
	_, w.lastErr = w.insuranceService.Update(context.Background(), domain.UpdateRateRequest{ID: id, NewRate: newRate})
	return nil
}

func (w *featureWorld) rowHasRate(id int64, rate float64) error {
	row, err := w.rates.FindByID(context.Background(), id)
	if err != nil {
		return err
	}
	if row.Rate != rate {
		return fmt.Errorf("expected rate %v, got %v", rate, row.Rate)
	}
	return nil
}

func (w *featureWorld) rowIs(id int64, cargoType string, rate float64, date string) error {
	row, err := w.rates.FindByID(context.Background(), id)
	if err != nil {
		return err
	}
	if !row.SameKey(date, cargoType, rate) {
		return fmt.Errorf("unexpected row %+v", row)
	}
	return nil
}

func (w *featureWorld) insuranceIsCalculated(id int64, price float64) error {
	w.calc, w.lastErr = w.insuranceService.Calculate(context.Background(), domain.CalculationRequest{ID: id, Price: price})
	return nil
}

func (w *featureWorld) theTotalIs(total float64) error {
	if w.lastErr != nil {
		return fmt.Errorf("expected a total, got %v", w.lastErr)
	}
	if math.Abs(w.calc.Total-total) > 1e-9 {
		return fmt.Errorf("expected total %v, got %v", total, w.calc.Total)
	}
	return nil
}

func (w *featureWorld) rowIsDeleted(id int64) error {
	return w.insuranceService.Delete(context.Background(), id)
}

// Bootstrap steps

func (w *featureWorld) theSeed(doc *godog.DocString) error {
	data, err := seed.ParseJSON([]byte(doc.Content))
	if err != nil {
		return err
	}
	w.seed = data
	return nil
}

func (w *featureWorld) theDeployRuns(admin string) error {
	bootstrapper := NewBootstrapper(BootstrapConfig{
		Auth:          w.authService,
		Insurance:     w.insuranceService,
		Lock:          w.lock,
		AdminUsername: admin,
		AdminPassword: "root",
	})
	_, err := bootstrapper.Deploy(context.Background(), w.seed)
	return err
}

func (w *featureWorld) storedRoles(n int) error {
	if got := w.users.RoleCount(); got != n {
		return fmt.Errorf("expected %d stored roles, got %d", n, got)
	}
	return nil
}

func (w *featureWorld) userIsActiveRole(username, role string) error {
	user, err := w.users.FindByUsername(context.Background(), username)
	if err != nil {
		return err
	}
	if !user.IsActive || user.RoleName() != role {
		return fmt.Errorf("expected active %s, got active=%v role=%s", role, user.IsActive, user.RoleName())
	}
	return nil
}

// Shared steps

var featureErrors = map[string]error{}

func init() {
	for _, err := range []error{
		domain.ErrNotFound,
		domain.ErrInvalidCredentials,
		domain.ErrAccountInactive,
		domain.ErrTokenExpired,
		domain.ErrTokenInvalid,
	} {
		featureErrors[err.Error()] = err
	}
}

func (w *featureWorld) failsWith(name string) error {
	want, ok := featureErrors[name]
	if !ok {
		return fmt.Errorf("unknown error %q", name)
	}
	if !errors.Is(w.lastErr, want) {
		return fmt.Errorf("expected %v, got %v", want, w.lastErr)
	}
	return nil
}

func initializeScenario(sc *godog.ScenarioContext) {
	w := &featureWorld{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, w.reset()
	})

	sc.Step(`^the roles:$`, w.theRoles)
	sc.Step(`^an? (active|inactive) user "([^"]*)" with password "([^"]*)" and role "([^"]*)"$`, w.aUser)
	sc.Step(`^"([^"]*)" logs in with password "([^"]*)"$`, w.userLogsIn)
	sc.Step(`^the login succeeds$`, w.theLoginSucceeds)
	sc.Step(`^the token subject is the id of "([^"]*)"$`, w.tokenSubjectIsIDOf)
	sc.Step(`^a token for "([^"]*)" that expired (\d+) seconds? ago is validated$`, w.expiredTokenIsValidated)
	sc.Step(`^a token for "([^"]*)" with a tampered signature is validated$`, w.tamperedTokenIsValidated)

	sc.Step(`^rate ([\d.]+) for "([^"]*)" on "([^"]*)" is upserted$`, w.rateIsUpserted)
	sc.Step(`^there (?:is|are) (\d+) stored rates?$`, w.storedRates)
	sc.Step(`^the store fails inserts$`, w.theStoreFailsInserts)
	sc.Step(`^user (\d+) uploads:$`, w.userUploads)
	sc.Step(`^the upload fails$`, w.theUploadFails)
	sc.Step(`^(\d+) audit lines are published in row order for user (\d+)$`, w.auditLinesPublished)
	sc.Step(`^the rate of row (\d+) is updated to ([\d.]+)$`, w.rateOfRowIsUpdated)
	sc.Step(`^row (\d+) has rate ([\d.]+)$`, w.rowHasRate)
	sc.Step(`^row (\d+) is "([^"]*)" at ([\d.]+) on "([^"]*)"$`, w.rowIs)
	sc.Step(`^the insurance for row (\d+) at price ([\d.]+) is calculated$`, w.insuranceIsCalculated)
	sc.Step(`^the total is ([\d.]+)$`, w.theTotalIs)
	sc.Step(`^row (\d+) is deleted$`, w.rowIsDeleted)

	sc.Step(`^the seed:$`, w.theSeed)
	sc.Step(`^the deploy runs with administrator "([^"]*)"$`, w.theDeployRuns)
	sc.Step(`^there (?:is|are) (\d+) stored roles?$`, w.storedRoles)
	sc.Step(`^"([^"]*)" is an active "([^"]*)"$`, w.userIsActiveRole)

	sc.Step(`^(?:the operation|the login|validation) fails with "([^"]*)"$`, w.failsWith)
}
