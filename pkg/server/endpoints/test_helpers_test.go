package endpoints

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/hospitaldigital/hospital-api/pkg/config"
	"github.com/hospitaldigital/hospital-api/pkg/model"
	"github.com/hospitaldigital/hospital-api/pkg/password"
	"github.com/hospitaldigital/hospital-api/pkg/pdf"
	"github.com/hospitaldigital/hospital-api/pkg/server"
	"github.com/hospitaldigital/hospital-api/pkg/server/middleware"
	"github.com/hospitaldigital/hospital-api/pkg/server/store"
	"github.com/hospitaldigital/hospital-api/pkg/token"
)

// fakeStores bundles the in-memory stores wired into a test server.
type fakeStores struct {
	users         *fakeUsersStore
	notes         *fakeNotesStore
	catalogs      *fakeCatalogsStore
	medications   *fakeMedicationsStore
	prescriptions *fakePrescriptionsStore
	orders        *fakeOrdersStore
	beds          *fakeBedsStore
}

// newTestServer builds a server against in-memory stores. It seeds a
// clinician and an administrative account and returns bearer tokens for
// both.
func newTestServer(t *testing.T) (*server.Server, *fakeStores, string, string) {
	t.Helper()

	issuer, err := token.NewIssuer("test-secret-key", "HS256", 30*time.Minute, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}

	hash, err := password.Hash("changeme123")
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	stores := &fakeStores{
		users: &fakeUsersStore{users: map[uint]*model.User{
			1: {
				ID: 1, Username: "gregory.house", Email: "house@hospital.test",
				PasswordHash: hash, FirstName: "Gregory", LastName: "House",
				Enabled: true, AccountNonLocked: true,
				ProfessionalData: model.JSONMap{
					"specialty":      "Diagnostic Medicine",
					"license_number": "MD-12345",
					"position":       "Attending",
				},
			},
			2: {
				ID: 2, Username: "admin", Email: "admin@hospital.test",
				PasswordHash: hash, FirstName: "Admin", LastName: "User",
				Enabled: true, AccountNonLocked: true,
			},
		}},
		notes:         &fakeNotesStore{notes: map[uint]*model.Note{}},
		catalogs:      &fakeCatalogsStore{entries: map[string]*model.Catalog{}},
		medications:   &fakeMedicationsStore{meds: map[uint]*model.Medication{}},
		prescriptions: &fakePrescriptionsStore{prescriptions: map[uint]*model.Prescription{}},
		orders:        &fakeOrdersStore{orders: map[uint]*model.Order{}},
		beds:          &fakeBedsStore{beds: map[uint]*model.Bed{}},
	}
	stores.prescriptions.meds = stores.medications

	cfg := &config.HospitalConfig{
		SecretKey:       "test-secret-key",
		Algorithm:       "HS256",
		APIListLimitMax: 1000,
		HospitalName:    "Test General Hospital",
	}

	srv := &server.Server{
		Config: cfg,
		Router: mux.NewRouter().UseEncodedPath(),

		Issuer:         issuer,
		AuthMiddleware: middleware.NewAuthenticator(issuer, stores.users),

		UsersStore:         stores.users,
		CatalogsStore:      stores.catalogs,
		MedicationsStore:   stores.medications,
		NotesStore:         stores.notes,
		PrescriptionsStore: stores.prescriptions,
		OrdersStore:        stores.orders,
		BedsStore:          stores.beds,
		HealthStore:        fakeHealthStore{},

		PDF: pdf.NewRenderer(cfg.HospitalName, t.TempDir()),
	}

	clinicianToken, err := issuer.IssueAccess(1, "house@hospital.test")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	adminToken, err := issuer.IssueAccess(2, "admin@hospital.test")
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	return srv, stores, "Bearer " + clinicianToken, "Bearer " + adminToken
}

type fakeHealthStore struct{}

func (fakeHealthStore) CheckConnectivity() error { return nil }

func (fakeHealthStore) Counts() (store.HealthCounts, error) {
	return store.HealthCounts{Users: 2}, nil
}

// fakeUsersStore implements store.UsersStore in memory.
type fakeUsersStore struct {
	users map[uint]*model.User
}

var _ store.UsersStore = (*fakeUsersStore)(nil)

func (f *fakeUsersStore) GetByID(id uint) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsersStore) GetByEmail(email string) (*model.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (f *fakeUsersStore) Create(user *model.User) error {
	if _, err := f.GetByEmail(user.Email); err == nil {
		return store.ErrEmailTaken
	}
	for _, existing := range f.users {
		if existing.Username == user.Username {
			return store.ErrUsernameTaken
		}
	}
	user.ID = uint(len(f.users) + 1)
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsersStore) Update(user *model.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsersStore) List(filter store.UserFilter) ([]model.User, int64, error) {
	ids := make([]uint, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var users []model.User
	for _, id := range ids {
		u := f.users[id]
		if filter.Active != nil && u.IsActive() != *filter.Active {
			continue
		}
		users = append(users, *u)
	}
	return users, int64(len(users)), nil
}

func (f *fakeUsersStore) SetRefreshToken(userID uint, tok *string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.RefreshToken = tok
	return nil
}

func (f *fakeUsersStore) SetPassword(userID uint, passwordHash string) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.PasswordHash = passwordHash
	u.RefreshToken = nil
	return nil
}

func (f *fakeUsersStore) RecordLogin(userID uint) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	now := time.Now()
	u.LastLogin = &now
	u.FailedLoginAttempts = 0
	return nil
}

func (f *fakeUsersStore) RecordFailedLogin(userID uint) error {
	u, ok := f.users[userID]
	if !ok {
		return store.ErrUserNotFound
	}
	u.FailedLoginAttempts++
	return nil
}

// fakeNotesStore implements store.NotesStore in memory with the same
// versioning behavior as the database store.
type fakeNotesStore struct {
	notes  map[uint]*model.Note
	nextID uint
}

var _ store.NotesStore = (*fakeNotesStore)(nil)

func (f *fakeNotesStore) GetByID(id uint) (*model.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	copied := *n
	return &copied, nil
}

func (f *fakeNotesStore) List(filter store.NoteFilter) ([]model.Note, int64, error) {
	ids := make([]uint, 0, len(f.notes))
	for id := range f.notes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var notes []model.Note
	for _, id := range ids {
		n := f.notes[id]
		if filter.PatientID != 0 && n.PatientID != filter.PatientID {
			continue
		}
		if filter.State != "" && n.State != filter.State {
			continue
		}
		if filter.CurrentOnly && !n.IsCurrent {
			continue
		}
		notes = append(notes, *n)
	}
	return notes, int64(len(notes)), nil
}

func (f *fakeNotesStore) Create(note *model.Note) error {
	f.nextID++
	note.ID = f.nextID
	note.State = model.NoteStateDraft
	note.Version = 1
	note.IsCurrent = true
	f.notes[note.ID] = note
	return nil
}

func (f *fakeNotesStore) Update(note *model.Note) error {
	existing, ok := f.notes[note.ID]
	if !ok {
		return store.ErrNoteNotFound
	}
	if !existing.Editable() {
		return store.ErrNoteImmutable
	}
	f.notes[note.ID] = note
	return nil
}

func (f *fakeNotesStore) Sign(id uint, signatureHash string) (*model.Note, error) {
	n, ok := f.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	if n.Signed {
		return nil, store.ErrNoteImmutable
	}
	now := time.Now()
	n.Signed = true
	n.SignedAt = &now
	n.SignatureHash = signatureHash
	n.State = model.NoteStateFinal
	n.FinalizedAt = &now
	copied := *n
	return &copied, nil
}

func (f *fakeNotesStore) NewVersion(id uint, body string, authorID uint, authorName string) (*model.Note, error) {
	prev, ok := f.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	if !prev.IsCurrent {
		return nil, store.ErrNoteNotCurrent
	}
	prev.IsCurrent = false

	originalID := prev.ID
	if prev.OriginalNoteID != nil {
		originalID = *prev.OriginalNoteID
	}

	f.nextID++
	next := *prev
	next.ID = f.nextID
	next.Body = body
	next.CreatedBy = authorID
	next.AuthorName = authorName
	next.State = model.NoteStateDraft
	next.Signed = false
	next.SignedAt = nil
	next.SignatureHash = ""
	next.FinalizedAt = nil
	next.Version = prev.Version + 1
	next.IsCurrent = true
	next.OriginalNoteID = &originalID
	f.notes[next.ID] = &next

	copied := next
	return &copied, nil
}

func (f *fakeNotesStore) History(id uint) ([]model.Note, error) {
	if _, ok := f.notes[id]; !ok {
		return nil, store.ErrNoteNotFound
	}
	var versions []model.Note
	for _, n := range f.notes {
		if n.ID == id || (n.OriginalNoteID != nil && *n.OriginalNoteID == id) {
			versions = append(versions, *n)
		}
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
	return versions, nil
}

func (f *fakeNotesStore) Stats() (map[string]int64, error) {
	stats := map[string]int64{}
	for _, n := range f.notes {
		if n.IsCurrent {
			stats[n.State]++
		}
	}
	return stats, nil
}

// fakeCatalogsStore implements store.CatalogsStore in memory.
type fakeCatalogsStore struct {
	entries map[string]*model.Catalog
	nextID  uint
}

var _ store.CatalogsStore = (*fakeCatalogsStore)(nil)

func (f *fakeCatalogsStore) GetByCode(code string) (*model.Catalog, error) {
	e, ok := f.entries[code]
	if !ok {
		return nil, store.ErrCatalogNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeCatalogsStore) List(filter store.CatalogFilter) ([]model.Catalog, int64, error) {
	var out []model.Catalog
	for _, e := range f.entries {
		if filter.SourceTable != "" && e.SourceTable != filter.SourceTable {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if filter.Kind != "" && e.Kind != filter.Kind {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(e.Code), needle) &&
				!strings.Contains(strings.ToLower(e.Description), needle) {
				continue
			}
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, int64(len(out)), nil
}

func (f *fakeCatalogsStore) SourceTables() ([]string, error) {
	seen := map[string]bool{}
	var tables []string
	for _, e := range f.entries {
		if !seen[e.SourceTable] {
			seen[e.SourceTable] = true
			tables = append(tables, e.SourceTable)
		}
	}
	sort.Strings(tables)
	return tables, nil
}

func (f *fakeCatalogsStore) Upsert(entry *model.Catalog) error {
	if existing, ok := f.entries[entry.Code]; ok {
		entry.ID = existing.ID
	} else {
		f.nextID++
		entry.ID = f.nextID
	}
	copied := *entry
	f.entries[entry.Code] = &copied
	return nil
}

// fakeMedicationsStore implements store.MedicationsStore in memory.
type fakeMedicationsStore struct {
	meds   map[uint]*model.Medication
	nextID uint
}

var _ store.MedicationsStore = (*fakeMedicationsStore)(nil)

func (f *fakeMedicationsStore) GetByID(id uint) (*model.Medication, error) {
	m, ok := f.meds[id]
	if !ok {
		return nil, store.ErrMedicationNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMedicationsStore) GetByCode(code string) (*model.Medication, error) {
	for _, m := range f.meds {
		if m.Code == code {
			copied := *m
			return &copied, nil
		}
	}
	return nil, store.ErrMedicationNotFound
}

func (f *fakeMedicationsStore) List(filter store.MedicationFilter) ([]model.Medication, int64, error) {
	var meds []model.Medication
	for _, m := range f.meds {
		meds = append(meds, *m)
	}
	sort.Slice(meds, func(i, j int) bool { return meds[i].ID < meds[j].ID })
	return meds, int64(len(meds)), nil
}

func (f *fakeMedicationsStore) Upsert(med *model.Medication) error {
	if existing, err := f.GetByCode(med.Code); err == nil {
		med.ID = existing.ID
	} else {
		f.nextID++
		med.ID = f.nextID
	}
	f.meds[med.ID] = med
	return nil
}

// fakePrescriptionsStore implements store.PrescriptionsStore in memory.
type fakePrescriptionsStore struct {
	prescriptions map[uint]*model.Prescription
	meds          *fakeMedicationsStore
	nextID        uint
}

var _ store.PrescriptionsStore = (*fakePrescriptionsStore)(nil)

func (f *fakePrescriptionsStore) GetByID(id uint) (*model.Prescription, error) {
	p, ok := f.prescriptions[id]
	if !ok {
		return nil, store.ErrPrescriptionNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePrescriptionsStore) GetByNumber(number string) (*model.Prescription, error) {
	for _, p := range f.prescriptions {
		if p.Number == number {
			copied := *p
			return &copied, nil
		}
	}
	return nil, store.ErrPrescriptionNotFound
}

func (f *fakePrescriptionsStore) List(filter store.PrescriptionFilter) ([]model.Prescription, int64, error) {
	var out []model.Prescription
	for _, p := range f.prescriptions {
		if filter.State != "" && p.State != filter.State {
			continue
		}
		if filter.PatientID != 0 && p.PatientID != filter.PatientID {
			continue
		}
		if !filter.From.IsZero() && p.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && !p.CreatedAt.Before(filter.To) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakePrescriptionsStore) Create(p *model.Prescription) error {
	f.nextID++
	p.ID = f.nextID
	p.Number = time.Now().Format("RX-20060102-") + "0001"
	p.State = model.PrescriptionStateActive
	p.CreatedAt = time.Now()
	for i := range p.Items {
		p.Items[i].ID = uint(i + 1)
		p.Items[i].PrescriptionID = p.ID
	}
	f.prescriptions[p.ID] = p
	return nil
}

func (f *fakePrescriptionsStore) Update(p *model.Prescription) error {
	existing, ok := f.prescriptions[p.ID]
	if !ok {
		return store.ErrPrescriptionNotFound
	}
	if !existing.Editable() {
		return store.ErrPrescriptionNotEditable
	}
	f.prescriptions[p.ID] = p
	return nil
}

func (f *fakePrescriptionsStore) Sign(id uint, signatureHash string) (*model.Prescription, error) {
	p, ok := f.prescriptions[id]
	if !ok {
		return nil, store.ErrPrescriptionNotFound
	}
	if p.State != model.PrescriptionStateActive {
		return nil, store.ErrPrescriptionNotEditable
	}
	now := time.Now()
	p.Signed = true
	p.SignedAt = &now
	p.SignatureHash = signatureHash
	copied := *p
	return &copied, nil
}

func (f *fakePrescriptionsStore) DispenseItem(prescriptionID, itemID uint, quantity int) (*model.Prescription, error) {
	p, ok := f.prescriptions[prescriptionID]
	if !ok {
		return nil, store.ErrPrescriptionNotFound
	}
	if p.State != model.PrescriptionStateActive {
		return nil, store.ErrPrescriptionNotEditable
	}

	var item *model.PrescriptionItem
	for i := range p.Items {
		if p.Items[i].ID == itemID {
			item = &p.Items[i]
			break
		}
	}
	if item == nil {
		return nil, store.ErrItemNotFound
	}

	if item.MedicationID != nil && !p.Signed && f.meds != nil {
		if med, err := f.meds.GetByID(*item.MedicationID); err == nil && med.Controlled {
			return nil, store.ErrPrescriptionUnsigned
		}
	}

	now := time.Now()
	item.DispensedQuantity += quantity
	if item.DispensedQuantity >= item.Quantity {
		item.DispensedQuantity = item.Quantity
		item.Dispensed = true
		item.DispensedAt = &now
	}

	allDispensed := true
	for i := range p.Items {
		if !p.Items[i].Dispensed {
			allDispensed = false
		}
	}
	if allDispensed {
		p.State = model.PrescriptionStateDispensed
	}

	copied := *p
	return &copied, nil
}

func (f *fakePrescriptionsStore) Void(id uint, reason string) (*model.Prescription, error) {
	p, ok := f.prescriptions[id]
	if !ok {
		return nil, store.ErrPrescriptionNotFound
	}
	if p.State != model.PrescriptionStateActive {
		return nil, store.ErrPrescriptionNotEditable
	}
	p.State = model.PrescriptionStateVoided
	copied := *p
	return &copied, nil
}

func (f *fakePrescriptionsStore) ExpireOverdue() (int64, error) {
	var count int64
	now := time.Now()
	for _, p := range f.prescriptions {
		if p.State == model.PrescriptionStateActive && p.ExpiresAt != nil && p.ExpiresAt.Before(now) {
			p.State = model.PrescriptionStateExpired
			count++
		}
	}
	return count, nil
}

func (f *fakePrescriptionsStore) Stats(prescriberID uint) (map[string]int64, error) {
	stats := map[string]int64{}
	for _, p := range f.prescriptions {
		if prescriberID != 0 && p.CreatedBy != prescriberID {
			continue
		}
		stats[p.State]++
	}
	return stats, nil
}

func (f *fakePrescriptionsStore) MostPrescribed(limit int) ([]store.MedicationCount, error) {
	counts := map[string]*store.MedicationCount{}
	for _, p := range f.prescriptions {
		for _, item := range p.Items {
			c, ok := counts[item.MedicationName]
			if !ok {
				c = &store.MedicationCount{
					MedicationCode: item.MedicationCode,
					MedicationName: item.MedicationName,
				}
				counts[item.MedicationName] = c
			}
			c.Prescriptions++
			c.TotalQuantity += int64(item.Quantity)
		}
	}

	var out []store.MedicationCount
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Prescriptions > out[j].Prescriptions })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeOrdersStore implements store.OrdersStore in memory.
type fakeOrdersStore struct {
	orders map[uint]*model.Order
	nextID uint
}

var _ store.OrdersStore = (*fakeOrdersStore)(nil)

func (f *fakeOrdersStore) GetByID(id uint) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrdersStore) GetByNumber(number string) (*model.Order, error) {
	for _, o := range f.orders {
		if o.Number == number {
			copied := *o
			return &copied, nil
		}
	}
	return nil, store.ErrOrderNotFound
}

func (f *fakeOrdersStore) List(filter store.OrderFilter) ([]model.Order, int64, error) {
	var out []model.Order
	for _, o := range f.orders {
		if filter.State != "" && o.State != filter.State {
			continue
		}
		if filter.PatientID != 0 && o.PatientID != filter.PatientID {
			continue
		}
		if filter.HospitalizationID != 0 && o.HospitalizationID != filter.HospitalizationID {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeOrdersStore) Create(order *model.Order) error {
	seen := make(map[string]bool)
	for i := range order.Items {
		code := order.Items[i].ExamCode
		if code == "" {
			continue
		}
		if seen[code] {
			return store.ErrDuplicateExam
		}
		seen[code] = true
		for _, existing := range f.orders {
			if existing.PatientID != order.PatientID {
				continue
			}
			for _, item := range existing.Items {
				if item.ExamCode == code && item.State != model.OrderStateCancelled {
					return store.ErrDuplicateExam
				}
			}
		}
	}

	f.nextID++
	order.ID = f.nextID
	order.Number = time.Now().Format("ORD-20060102-") + "0001"
	order.State = model.OrderStatePending
	if order.Priority == "" {
		order.Priority = model.OrderPriorityNormal
	}
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
		order.Items[i].State = model.OrderStatePending
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrdersStore) Update(order *model.Order) error {
	existing, ok := f.orders[order.ID]
	if !ok {
		return store.ErrOrderNotFound
	}
	if !existing.Editable() {
		return store.ErrOrderTerminal
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrdersStore) Transition(id uint, toState string, actorID uint) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	if o.State == model.OrderStateCompleted || o.State == model.OrderStateCancelled {
		return nil, store.ErrOrderTerminal
	}

	allowed := map[string][]string{
		model.OrderStatePending:    {model.OrderStateInProgress, model.OrderStateCancelled},
		model.OrderStateInProgress: {model.OrderStateCompleted, model.OrderStateCancelled},
	}
	ok = false
	for _, s := range allowed[o.State] {
		if s == toState {
			ok = true
		}
	}
	if !ok {
		return nil, store.ErrInvalidTransition
	}
	if toState == model.OrderStateCompleted {
		for i := range o.Items {
			if !o.Items[i].Terminal() {
				return nil, store.ErrItemsOpen
			}
		}
	}

	o.State = toState
	copied := *o
	return &copied, nil
}

func (f *fakeOrdersStore) SetItemResult(orderID, itemID uint, result store.OrderResult) (*model.OrderItem, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	if o.State == model.OrderStateCompleted || o.State == model.OrderStateCancelled {
		return nil, store.ErrOrderTerminal
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			item := &o.Items[i]
			item.Result = result.Result
			item.NumericValue = result.NumericValue
			item.Unit = result.Unit
			item.Responsible = result.Responsible
			item.State = model.OrderStateCompleted
			if o.State == model.OrderStatePending {
				o.State = model.OrderStateInProgress
			}
			copied := *item
			return &copied, nil
		}
	}
	return nil, store.ErrOrderItemNotFound
}

func (f *fakeOrdersStore) ValidateItem(orderID, itemID uint, validatorID uint, validatorName string) (*model.OrderItem, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrOrderNotFound
	}
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			item := &o.Items[i]
			if !item.HasResult() {
				return nil, store.ErrNoResult
			}
			now := time.Now()
			item.Validated = true
			item.ValidatedAt = &now
			item.ValidatedBy = validatorName
			copied := *item
			return &copied, nil
		}
	}
	return nil, store.ErrOrderItemNotFound
}

func (f *fakeOrdersStore) Stats(clinicianID uint) (map[string]int64, error) {
	stats := map[string]int64{}
	for _, o := range f.orders {
		if clinicianID != 0 && o.CreatedBy != clinicianID {
			continue
		}
		stats[o.State]++
	}
	return stats, nil
}

func (f *fakeOrdersStore) MostRequested(limit int) ([]store.ExamCount, error) {
	counts := map[string]*store.ExamCount{}
	for _, o := range f.orders {
		for _, item := range o.Items {
			c, ok := counts[item.ExamName]
			if !ok {
				c = &store.ExamCount{ExamCode: item.ExamCode, ExamName: item.ExamName}
				counts[item.ExamName] = c
			}
			c.Requests++
		}
	}

	var out []store.ExamCount
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Requests > out[j].Requests })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// fakeBedsStore implements store.BedsStore in memory.
type fakeBedsStore struct {
	beds         map[uint]*model.Bed
	movements    []model.BedMovement
	structure    *model.HospitalStructure
	nextID       uint
	nextStructID uint
}

var _ store.BedsStore = (*fakeBedsStore)(nil)

func (f *fakeBedsStore) GetByID(id uint) (*model.Bed, error) {
	b, ok := f.beds[id]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	copied := *b
	return &copied, nil
}

func (f *fakeBedsStore) GetByNumber(number string) (*model.Bed, error) {
	for _, b := range f.beds {
		if b.Number == number {
			copied := *b
			return &copied, nil
		}
	}
	return nil, store.ErrBedNotFound
}

func (f *fakeBedsStore) List(filter store.BedFilter) ([]model.Bed, int64, error) {
	var out []model.Bed
	for _, b := range f.beds {
		if filter.Service != "" && b.Service != filter.Service {
			continue
		}
		if filter.Occupied != nil && b.Occupied != *filter.Occupied {
			continue
		}
		if filter.BedType != "" && b.BedType != filter.BedType {
			continue
		}
		if filter.Search != "" {
			needle := strings.ToLower(filter.Search)
			if !b.Occupied ||
				(!strings.Contains(strings.ToLower(b.PatientName), needle) &&
					!strings.Contains(strings.ToLower(b.PatientDocument), needle)) {
				continue
			}
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeBedsStore) Create(bed *model.Bed) error {
	f.nextID++
	bed.ID = f.nextID
	if bed.State == "" {
		bed.State = model.BedStateAvailable
	}
	f.beds[bed.ID] = bed
	f.recount()
	return nil
}

func (f *fakeBedsStore) SetState(id uint, state string) (*model.Bed, error) {
	b, ok := f.beds[id]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	if b.Occupied {
		return nil, store.ErrBedOccupied
	}
	b.State = state
	f.recount()
	copied := *b
	return &copied, nil
}

func (f *fakeBedsStore) Assign(id uint, occupancy model.Occupancy, actorID uint, actorName string) (*model.Bed, error) {
	b, ok := f.beds[id]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	if !b.Assignable() {
		return nil, store.ErrBedOccupied
	}
	for _, other := range f.beds {
		if other.Occupied && other.PatientID != nil && *other.PatientID == occupancy.PatientID {
			return nil, store.ErrPatientAlreadyAdmitted
		}
	}
	b.Occupy(occupancy)
	f.movements = append(f.movements, model.BedMovement{
		BedID: b.ID, BedNumber: b.Number,
		PatientID: occupancy.PatientID, PatientName: occupancy.PatientName,
		Kind: model.MovementAssign, ToService: b.Service,
		ActorID: actorID, ActorName: actorName,
	})
	f.recount()
	copied := *b
	return &copied, nil
}

func (f *fakeBedsStore) Release(id uint, actorID uint, actorName string) (*model.Bed, error) {
	b, ok := f.beds[id]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	if !b.Occupied {
		return nil, store.ErrBedVacant
	}
	patientID := uint(0)
	if b.PatientID != nil {
		patientID = *b.PatientID
	}
	b.Release()
	f.movements = append(f.movements, model.BedMovement{
		BedID: b.ID, BedNumber: b.Number, PatientID: patientID,
		Kind: model.MovementRelease, FromService: b.Service,
		ActorID: actorID, ActorName: actorName,
	})
	f.recount()
	copied := *b
	return &copied, nil
}

func (f *fakeBedsStore) Transfer(fromID, toID uint, actorID uint, actorName string) (*model.Bed, error) {
	from, ok := f.beds[fromID]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	to, ok := f.beds[toID]
	if !ok {
		return nil, store.ErrBedNotFound
	}
	if !from.Occupied {
		return nil, store.ErrBedVacant
	}
	if !to.Assignable() {
		return nil, store.ErrBedOccupied
	}

	occupancy := model.Occupancy{
		PatientName:        from.PatientName,
		PatientDocument:    from.PatientDocument,
		PatientPhone:       from.PatientPhone,
		AccountNumber:      from.AccountNumber,
		AttendingClinician: from.AttendingClinician,
		Specialty:          from.Specialty,
		Diagnosis:          from.Diagnosis,
	}
	if from.PatientID != nil {
		occupancy.PatientID = *from.PatientID
	}
	if from.HospitalizationID != nil {
		occupancy.HospitalizationID = *from.HospitalizationID
	}
	if from.AdmittedAt != nil {
		occupancy.AdmittedAt = *from.AdmittedAt
	}

	from.Release()
	to.Occupy(occupancy)

	f.movements = append(f.movements, model.BedMovement{
		BedID: to.ID, BedNumber: to.Number, PatientID: occupancy.PatientID,
		Kind: model.MovementTransfer, FromService: from.Service, ToService: to.Service,
		ActorID: actorID, ActorName: actorName,
	})
	f.recount()
	copied := *to
	return &copied, nil
}

func (f *fakeBedsStore) Structure() (*model.HospitalStructure, error) {
	if f.structure == nil {
		return nil, store.ErrStructureNotFound
	}
	copied := *f.structure
	return &copied, nil
}

func (f *fakeBedsStore) SaveStructure(structure *model.HospitalStructure) error {
	if f.structure != nil {
		structure.ID = f.structure.ID
		structure.TotalBeds = f.structure.TotalBeds
		structure.AvailableBeds = f.structure.AvailableBeds
		structure.OccupiedBeds = f.structure.OccupiedBeds
		structure.MaintenanceBeds = f.structure.MaintenanceBeds
		structure.CreatedAt = f.structure.CreatedAt
	} else {
		f.nextStructID++
		structure.ID = f.nextStructID
	}
	f.structure = structure
	f.recount()
	return nil
}

func (f *fakeBedsStore) Movements(filter store.MovementFilter) ([]model.BedMovement, int64, error) {
	var out []model.BedMovement
	for _, m := range f.movements {
		if filter.Kind != "" && m.Kind != filter.Kind {
			continue
		}
		if filter.BedID != 0 && m.BedID != filter.BedID {
			continue
		}
		out = append(out, m)
	}
	return out, int64(len(out)), nil
}

func (f *fakeBedsStore) SummaryByService() ([]store.BedSummary, error) {
	byService := map[string]*store.BedSummary{}
	for _, b := range f.beds {
		s, ok := byService[b.Service]
		if !ok {
			s = &store.BedSummary{Service: b.Service}
			byService[b.Service] = s
		}
		s.Total++
		if b.Occupied {
			s.Occupied++
		} else if b.State == model.BedStateAvailable {
			s.Available++
		}
	}

	var out []store.BedSummary
	for _, s := range byService {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Service < out[j].Service })
	return out, nil
}

func (f *fakeBedsStore) Services() ([]string, error) {
	seen := map[string]bool{}
	var services []string
	for _, b := range f.beds {
		if b.Service != "" && !seen[b.Service] {
			seen[b.Service] = true
			services = append(services, b.Service)
		}
	}
	sort.Strings(services)
	return services, nil
}

func (f *fakeBedsStore) recount() {
	if f.structure == nil {
		return
	}
	var total, available, occupied, maintenance int
	for _, b := range f.beds {
		total++
		switch {
		case b.Occupied:
			occupied++
		case b.State == model.BedStateAvailable:
			available++
		case b.State == model.BedStateMaintenance:
			maintenance++
		}
	}
	f.structure.TotalBeds = total
	f.structure.AvailableBeds = available
	f.structure.OccupiedBeds = occupied
	f.structure.MaintenanceBeds = maintenance
}
