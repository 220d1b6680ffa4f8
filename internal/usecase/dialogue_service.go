package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/carniceria-aranda/backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultSessionTTL is how long an idle conversation is remembered.
	DefaultSessionTTL = 2 * time.Hour
	// DefaultReminderEvery is how often a free-mode customer is reminded of
	// the "iniciar pedido" command.
	DefaultReminderEvery = 3
	// DefaultOpeningHours is shown in the welcome message.
	DefaultOpeningHours = "Lunes a Sábado de 9:00 a 14:00 y de 17:00 a 20:00"

	sessionLockStripes = 64
)

const (
	replyStartOrder     = "Genial 👍. Vamos a empezar tu pedido.\n¿Cuál es tu nombre?"
	replyReminder       = "Recuerda que para encargar algo debes escribir *'iniciar pedido'*."
	replyNotUnderstood  = "No entendí tu mensaje. Cuando quieras encargar algo, escribe *'iniciar pedido'*."
	replyCannotGoBack   = "No puedes retroceder más, estamos al inicio del pedido."
	replyEmptyCart      = "No has añadido ningún producto. Añade al menos uno antes de decir 'listo'."
	replyInvalidFormat  = "Formato no válido. Ejemplo: '2 kg de pollo'. O escribe 'listo' si has terminado."
	replyConfirmPrompt  = "Escribe 'confirmar' para finalizar o 'cancelar' para anular."
	replyCancelled      = "Pedido cancelado ❌. Si quieres empezar de nuevo, escribe 'iniciar pedido'."
	replyItemsHelp      = "Dime qué quieres y la cantidad.\nPara eliminar un producto: 'eliminar pollo'.\nPara ver tu pedido: 'carrito'.\nCuando termines, escribe 'listo'."
	replyCatalogMissing = "Ahora mismo no podemos tomar pedidos. Inténtalo de nuevo en unos minutos."
)

var (
	goBackRegex     = regexp.MustCompile(`\bvolver\s+atr[aá]s\b`)
	startOrderRegex = regexp.MustCompile(`\biniciar\s+pedido\b`)
	removeItemRegex = regexp.MustCompile(`^(?:eliminar|quitar|borrar)\s+(.+)$`)
)

// SnapshotProvider returns the catalog snapshot currently published.
type SnapshotProvider interface {
	Snapshot() *CatalogSnapshot
}

// DialogueConfig tunes the conversation flow.
type DialogueConfig struct {
	SessionTTL    time.Duration
	ReminderEvery int
	OpeningHours  string
}

// DialogueOption customizes a DialogueService.
type DialogueOption func(*DialogueService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) DialogueOption {
	return func(s *DialogueService) { s.now = now }
}

// WithOrderIDs replaces the order ID generator.
func WithOrderIDs(newID func() string) DialogueOption {
	return func(s *DialogueService) { s.newID = newID }
}

// WithDialogueLogger sets the logger.
func WithDialogueLogger(l *zap.Logger) DialogueOption {
	return func(s *DialogueService) { s.logger = l }
}

// WithDialogueRecorder sets the metrics recorder.
func WithDialogueRecorder(m Recorder) DialogueOption {
	return func(s *DialogueService) { s.metrics = m }
}

// DialogueService drives the chat conversation: free chat, then the
// name, pickup time, items and confirmation steps of an order.
type DialogueService struct {
	sessions domain.SessionStore
	archive  domain.OrderArchive
	catalogs SnapshotProvider
	cfg      DialogueConfig

	now     func() time.Time
	newID   func() string
	logger  *zap.Logger
	metrics Recorder

	// Messages of one user are handled one at a time.
	locks [sessionLockStripes]sync.Mutex
}

// NewDialogueService creates a dialogue service.
func NewDialogueService(
	sessions domain.SessionStore,
	archive domain.OrderArchive,
	catalogs SnapshotProvider,
	cfg DialogueConfig,
	opts ...DialogueOption,
) *DialogueService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ReminderEvery <= 0 {
		cfg.ReminderEvery = DefaultReminderEvery
	}
	if cfg.OpeningHours == "" {
		cfg.OpeningHours = DefaultOpeningHours
	}

	s := &DialogueService{
		sessions: sessions,
		archive:  archive,
		catalogs: catalogs,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   zap.NewNop(),
		metrics:  NopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HandleMessage processes one incoming message and returns the reply.
// Errors are only returned for infrastructure failures.
func (s *DialogueService) HandleMessage(ctx context.Context, userID, text string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", fmt.Errorf("%w: missing user id", domain.ErrInvalidRequest)
	}

	mu := s.lockFor(userID)
	mu.Lock()
	defer mu.Unlock()

	session, err := s.sessions.Get(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		session = domain.NewSession(userID)
	} else if err != nil {
		return "", fmt.Errorf("loading session: %w", err)
	}

	raw := strings.TrimSpace(norm.NFC.String(text))
	msg := collapseSpaces(strings.ToLower(raw))

	reply, done, err := s.step(ctx, session, raw, msg)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveMessage(session.Mode, session.Step)

	if done {
		if err := s.sessions.Delete(ctx, userID); err != nil {
			return "", fmt.Errorf("deleting session: %w", err)
		}
		return reply, nil
	}

	session.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return "", fmt.Errorf("saving session: %w", err)
	}
	return reply, nil
}

// step advances the session. done reports that the conversation is over
// and the session must be forgotten.
func (s *DialogueService) step(ctx context.Context, session *domain.Session, raw, msg string) (reply string, done bool, err error) {
	if session.Mode == domain.ModeOrder && goBackRegex.MatchString(msg) {
		return s.goBack(session), false, nil
	}

	if startOrderRegex.MatchString(msg) {
		session.StartOrder()
		return replyStartOrder, false, nil
	}

	if session.Mode != domain.ModeOrder {
		return s.freeChat(session), false, nil
	}

	switch session.Step {
	case domain.StepName:
		session.CustomerName = ExtractCustomerName(raw)
		session.Step = domain.StepPickupTime
		return fmt.Sprintf("Perfecto, %s 😊. ¿Cuándo pasarás a recoger tu pedido?\n%s",
			session.CustomerName, pickupHelp()), false, nil

	case domain.StepPickupTime:
		return s.pickupTime(session, msg), false, nil

	case domain.StepItems:
		return s.items(ctx, session, msg), false, nil

	case domain.StepConfirm:
		return s.confirm(ctx, session, msg)

	default:
		session.StartOrder()
		return replyStartOrder, false, nil
	}
}

func (s *DialogueService) freeChat(session *domain.Session) string {
	session.MessageCount++
	switch {
	case session.MessageCount == 1:
		return fmt.Sprintf("Hola 😊. Bienvenido a la carnicería.\n"+
			"⏰ *Horario*: %s.\n"+
			"Puedes escribirme lo que quieras y te atenderemos lo antes posible.\n"+
			"Cuando quieras encargar algo, simplemente escribe *'iniciar pedido'*.", s.cfg.OpeningHours)
	case session.MessageCount%s.cfg.ReminderEvery == 0:
		return replyReminder
	default:
		return replyNotUnderstood
	}
}

func (s *DialogueService) goBack(session *domain.Session) string {
	switch session.Step {
	case domain.StepPickupTime:
		session.CustomerName = ""
		session.Step = domain.StepName
		return "Has vuelto atrás ↩️. Vamos de nuevo.\n¿Cuál es tu nombre?"
	case domain.StepItems:
		session.PickupAt = time.Time{}
		session.Step = domain.StepPickupTime
		return "Has vuelto atrás ↩️. Por favor, indícanos *día y hora*.\n" + pickupHelp()
	case domain.StepConfirm:
		session.Step = domain.StepItems
		return fmt.Sprintf("Has vuelto atrás ↩️. Lista actual:\n%s\nDime si quieres añadir o quitar algo.",
			formatCart(session.Cart))
	default:
		return replyCannotGoBack
	}
}

func (s *DialogueService) pickupTime(session *domain.Session, msg string) string {
	pickup, err := ParsePickupTime(msg, s.now())
	if err != nil {
		reason := "No he entendido el día y la hora."
		if errors.Is(err, domain.ErrPickupInPast) {
			reason = "La fecha y hora deben ser futuras."
		}
		return reason + "\n" + pickupHelp()
	}

	session.PickupAt = pickup
	session.Step = domain.StepItems

	snapshot := s.catalogs.Snapshot()
	if snapshot == nil {
		return fmt.Sprintf("Perfecto. Programado para *%s*.\n\n%s", FormatPickupTime(pickup), replyItemsHelp)
	}
	return fmt.Sprintf("Perfecto. Programado para *%s*.\n\nEstos son nuestros productos:\n%s\n\n%s",
		FormatPickupTime(pickup), formatCatalog(snapshot.Catalog), replyItemsHelp)
}

func (s *DialogueService) items(ctx context.Context, session *domain.Session, msg string) string {
	snapshot := s.catalogs.Snapshot()
	if snapshot == nil {
		return replyCatalogMissing
	}

	switch {
	case msg == "listo":
		if len(session.Cart) == 0 {
			return replyEmptyCart
		}
		session.Step = domain.StepConfirm
		receipt := BuildReceipt(session.Cart, snapshot.Catalog)
		return fmt.Sprintf("Este es tu pedido para *%s*:\n%s\n%s",
			FormatPickupTime(session.PickupAt), formatReceipt(receipt), replyConfirmPrompt)

	case msg == "carrito":
		return "Carrito actual:\n" + formatCart(session.Cart)
	}

	if m := removeItemRegex.FindStringSubmatch(msg); m != nil {
		return s.removeItem(ctx, session, snapshot, m[1])
	}

	result := snapshot.Extractor.Extract(ctx, msg)
	if result.Empty() {
		return replyInvalidFormat
	}

	var b strings.Builder
	if len(result.Items) > 0 {
		added := make([]string, 0, len(result.Items))
		for _, item := range result.Items {
			session.Cart = session.Cart.Add(item)
			added = append(added, fmt.Sprintf("%s (%s)", item.Product, formatQuantity(item.Quantity)))
		}
		fmt.Fprintf(&b, "%s añadido.\n", strings.Join(added, ", "))
	}
	for _, d := range result.Diagnostics {
		b.WriteString(describeDiagnostic(d))
		b.WriteByte('\n')
	}
	b.WriteString("Carrito actual:\n")
	b.WriteString(formatCart(session.Cart))
	return b.String()
}

func (s *DialogueService) removeItem(ctx context.Context, session *domain.Session, snapshot *CatalogSnapshot, phrase string) string {
	phrase = CleanSegment(phrase)

	res := snapshot.Resolver.Resolve(ctx, phrase)
	if res.Kind == domain.ResolutionExact {
		if cart, ok := session.Cart.Remove(res.Product); ok {
			session.Cart = cart
			return fmt.Sprintf("%s eliminado del carrito.\nCarrito actual:\n%s", res.Product, formatCart(session.Cart))
		}
	}

	// Cart products may have left the catalog since they were added.
	key := snapshot.Index.Key(phrase)
	for _, product := range session.Cart.Products() {
		if snapshot.Index.Key(product) == key {
			session.Cart, _ = session.Cart.Remove(product)
			return fmt.Sprintf("%s eliminado del carrito.\nCarrito actual:\n%s", product, formatCart(session.Cart))
		}
	}
	return fmt.Sprintf("No tienes %s en tu carrito.", phrase)
}

func (s *DialogueService) confirm(ctx context.Context, session *domain.Session, msg string) (string, bool, error) {
	switch {
	case strings.Contains(msg, "confirmar"):
		snapshot := s.catalogs.Snapshot()
		if snapshot == nil {
			return replyCatalogMissing, false, nil
		}
		order := &domain.Order{
			ID:           s.newID(),
			UserID:       session.UserID,
			CustomerName: session.CustomerName,
			PickupAt:     session.PickupAt,
			Receipt:      BuildReceipt(session.Cart, snapshot.Catalog),
			CreatedAt:    s.now(),
		}
		if err := s.archive.Save(ctx, order); err != nil {
			return "", false, fmt.Errorf("archiving order: %w", err)
		}
		s.metrics.ObserveOrder(len(order.Receipt.Lines))
		s.logger.Info("order confirmed",
			zap.String("order_id", order.ID),
			zap.String("user_id", order.UserID),
			zap.Int("lines", len(order.Receipt.Lines)),
			zap.String("total", order.Receipt.Total.StringFixed(centPrecision)))

		return fmt.Sprintf("✅ *Pedido confirmado*\n"+
			"🧾 Nº: %s\n"+
			"👤 Cliente: %s\n"+
			"🕒 Hora: %s\n"+
			"🛒 Pedido:\n%s",
			order.ID, order.CustomerName, FormatPickupTime(order.PickupAt), formatReceipt(order.Receipt)), true, nil

	case strings.Contains(msg, "cancelar"):
		return replyCancelled, true, nil

	default:
		return replyConfirmPrompt, false, nil
	}
}

func (s *DialogueService) lockFor(userID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &s.locks[h.Sum32()%sessionLockStripes]
}

func pickupHelp() string {
	var b strings.Builder
	b.WriteString("Indica *día y hora*, por ejemplo:")
	for _, ex := range PickupExamples {
		b.WriteString("\n• ")
		b.WriteString(ex)
	}
	return b.String()
}

func describeDiagnostic(d domain.Diagnostic) string {
	switch d.Kind {
	case domain.DiagnosticAmbiguous:
		return fmt.Sprintf("¿A cuál te refieres con '%s'? Opciones: %s.", d.Phrase, strings.Join(d.Candidates, ", "))
	case domain.DiagnosticNotFound:
		if len(d.Candidates) > 0 {
			return fmt.Sprintf("No tenemos '%s'. ¿Quizás: %s?", d.Phrase, strings.Join(d.Candidates, ", "))
		}
		return fmt.Sprintf("No tenemos '%s' en el catálogo.", d.Phrase)
	case domain.DiagnosticInvalidQuantity:
		return fmt.Sprintf("La cantidad de '%s' no es válida.", d.Segment)
	default:
		return fmt.Sprintf("No entendí '%s'. Ejemplo: '2 kg de pollo'.", d.Segment)
	}
}

func formatQuantity(q domain.Quantity) string {
	if q.Unit == domain.UnitPieces {
		if q.Value.Equal(decimal.NewFromInt(1)) {
			return "1 unidad"
		}
		return q.Value.String() + " unidades"
	}
	return q.Value.String() + " kg"
}

func formatCart(cart domain.Cart) string {
	if len(cart) == 0 {
		return "Carrito vacío."
	}
	lines := make([]string, 0, len(cart))
	for _, line := range cart {
		lines = append(lines, fmt.Sprintf("• %s: %s", line.Product,
			formatQuantity(domain.Quantity{Value: line.Quantity, Unit: line.Unit})))
	}
	return strings.Join(lines, "\n")
}

func formatCatalog(catalog *domain.Catalog) string {
	products := catalog.Products()
	lines := make([]string, 0, len(products))
	for _, p := range products {
		lines = append(lines, fmt.Sprintf("- %s (%s€/%s)", p.Name, p.Price.StringFixed(centPrecision), p.PriceUnit))
	}
	return strings.Join(lines, "\n")
}

func formatReceipt(r domain.Receipt) string {
	var b strings.Builder
	for _, line := range r.Lines {
		if line.Pending() {
			fmt.Fprintf(&b, "• %s: %s (precio al pesar)\n", line.Product, formatQuantity(line.Quantity))
			continue
		}
		fmt.Fprintf(&b, "• %s: %s x %s€/%s = %s€\n", line.Product, formatQuantity(line.Quantity),
			line.UnitPrice.StringFixed(centPrecision), line.PriceUnit, line.Subtotal.StringFixed(centPrecision))
	}
	fmt.Fprintf(&b, "Total: %s€", r.Total.StringFixed(centPrecision))
	if r.HasPending() {
		b.WriteString(" + productos pendientes de pesar")
	}
	return b.String()
}
