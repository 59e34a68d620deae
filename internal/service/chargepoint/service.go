package chargepoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/ocpp-central/internal/domain"
	"github.com/seu-repo/ocpp-central/internal/events"
	"github.com/seu-repo/ocpp-central/internal/ports"
)

const (
	// DefaultHeartbeatInterval is what BootNotification replies tell the
	// station to use, in seconds.
	DefaultHeartbeatInterval = 300

	idTagCacheTTL = 5 * time.Minute
)

// RemoteStopper issues a remote stop; satisfied by the command dispatcher.
// Set after construction because the dispatcher is wired to the same
// session registry the server feeds this service from.
type RemoteStopper interface {
	RemoteStop(ctx context.Context, chargePointID string, transactionID int) (string, error)
}

// BootInfo carries the station metadata from a BootNotification.
type BootInfo struct {
	Vendor          string
	Model           string
	SerialNumber    string
	FirmwareVersion string
	Iccid           string
	Imsi            string
	MeterType       string
	MeterSerial     string
	OcppVersion     domain.OcppVersion
}

// MeterSample is one sampled value set extracted from MeterValues or a
// TransactionEvent(Updated).
type MeterSample struct {
	EnergyWh *int
	PowerW   *float64
	Soc      *float64
}

type limitKey struct {
	chargePointID string
	connectorID   int
}

// Service implements the station lifecycle: boot, heartbeat, status,
// authorization, transactions and live meter handling.
type Service struct {
	repos             ports.RepositoryProvider
	bus               *events.Bus
	cache             ports.Cache
	billing           ports.BillingService
	hasher            ports.PasswordHasher
	logger            *zap.Logger
	heartbeatInterval int

	limitMu       sync.Mutex
	pendingLimits map[limitKey]domain.ChargingLimit

	stopperMu sync.RWMutex
	stopper   RemoteStopper
}

func NewService(repos ports.RepositoryProvider, bus *events.Bus, cache ports.Cache, billing ports.BillingService, hasher ports.PasswordHasher, logger *zap.Logger) *Service {
	return &Service{
		repos:             repos,
		bus:               bus,
		cache:             cache,
		billing:           billing,
		hasher:            hasher,
		logger:            logger,
		heartbeatInterval: DefaultHeartbeatInterval,
		pendingLimits:     make(map[limitKey]domain.ChargingLimit),
	}
}

// WithHeartbeatInterval overrides the interval handed to stations at boot.
func (s *Service) WithHeartbeatInterval(seconds int) *Service {
	if seconds > 0 {
		s.heartbeatInterval = seconds
	}
	return s
}

// SetRemoteStopper wires the dispatcher in after construction.
func (s *Service) SetRemoteStopper(stopper RemoteStopper) {
	s.stopperMu.Lock()
	s.stopper = stopper
	s.stopperMu.Unlock()
}

// HandleBootNotification persists station metadata, marks it online and
// returns the heartbeat interval for the reply. Boots are accepted
// unconditionally.
func (s *Service) HandleBootNotification(ctx context.Context, chargePointID string, info BootInfo) (int, time.Time, error) {
	now := time.Now().UTC()

	cp, err := s.repos.ChargePoints().FindByID(ctx, chargePointID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, now, fmt.Errorf("loading charge point: %w", err)
	}
	if cp == nil {
		cp = &domain.ChargePoint{ID: chargePointID, RegisteredAt: now}
	}

	cp.Vendor = info.Vendor
	cp.Model = info.Model
	cp.SerialNumber = info.SerialNumber
	cp.FirmwareVersion = info.FirmwareVersion
	cp.Iccid = info.Iccid
	cp.Imsi = info.Imsi
	cp.MeterType = info.MeterType
	cp.MeterSerialNumber = info.MeterSerial
	if info.OcppVersion != "" {
		v := info.OcppVersion
		cp.OcppVersion = &v
	}
	cp.SetOnline(now)

	if err := s.repos.ChargePoints().Save(ctx, cp); err != nil {
		return 0, now, fmt.Errorf("saving charge point: %w", err)
	}

	s.bus.Publish(events.BootNotificationReceived{
		ChargePointID:   chargePointID,
		Vendor:          info.Vendor,
		Model:           info.Model,
		SerialNumber:    info.SerialNumber,
		FirmwareVersion: info.FirmwareVersion,
		Timestamp:       now,
	})

	return s.heartbeatInterval, now, nil
}

// HandleHeartbeat refreshes last_heartbeat and returns the reply timestamp.
func (s *Service) HandleHeartbeat(ctx context.Context, chargePointID string) time.Time {
	now := time.Now().UTC()
	if err := s.repos.ChargePoints().UpdateHeartbeat(ctx, chargePointID, now); err != nil {
		s.logger.Warn("heartbeat persist failed",
			zap.String("charge_point_id", chargePointID),
			zap.Error(err))
	}
	s.bus.Publish(events.HeartbeatReceived{ChargePointID: chargePointID, Timestamp: now})
	return now
}

// HandleStatusNotification updates connector state, auto-creating unknown
// connectors. Connector id 0 addresses the station itself.
func (s *Service) HandleStatusNotification(ctx context.Context, chargePointID string, connectorID int, status domain.ConnectorStatus, errorCode, info, vendorErrorCode string) error {
	now := time.Now().UTC()

	if connectorID == 0 {
		cpStatus := domain.ChargePointStatusOnline
		if status == domain.ConnectorStatusUnavailable || status == domain.ConnectorStatusFaulted {
			cpStatus = domain.ChargePointStatusUnavailable
		}
		if err := s.repos.ChargePoints().UpdateStatus(ctx, chargePointID, cpStatus); err != nil {
			return fmt.Errorf("updating charge point status: %w", err)
		}
	} else {
		connector := &domain.Connector{
			ChargePointID:   chargePointID,
			ConnectorID:     connectorID,
			Status:          status,
			ErrorCode:       errorCode,
			ErrorInfo:       info,
			VendorErrorCode: vendorErrorCode,
			UpdatedAt:       now,
		}
		if err := s.repos.ChargePoints().UpdateConnectorStatus(ctx, chargePointID, connector); err != nil {
			return fmt.Errorf("updating connector status: %w", err)
		}
	}

	s.bus.Publish(events.ConnectorStatusChanged{
		ChargePointID: chargePointID,
		ConnectorID:   connectorID,
		Status:        string(status),
		ErrorCode:     errorCode,
		Info:          info,
		Timestamp:     now,
	})
	return nil
}

// Authorize resolves an id tag through the cache and returns the status to
// put on the wire. Unknown tags report Invalid.
func (s *Service) Authorize(ctx context.Context, chargePointID, idTag string) (domain.AuthorizationStatus, *domain.IdTag) {
	now := time.Now().UTC()
	tag := s.lookupIdTag(ctx, idTag)

	status := domain.AuthorizationInvalid
	if tag != nil {
		status = tag.AuthStatus(now)
	}

	if tag != nil {
		if err := s.repos.IdTags().TouchLastUsed(ctx, idTag, now); err != nil {
			s.logger.Debug("touch last_used failed", zap.String("id_tag", idTag), zap.Error(err))
		}
	}

	s.bus.Publish(events.AuthorizationResult{
		ChargePointID: chargePointID,
		IdTag:         idTag,
		Status:        string(status),
		Timestamp:     now,
	})
	return status, tag
}

func (s *Service) lookupIdTag(ctx context.Context, idTag string) *domain.IdTag {
	cacheKey := "idtag:" + idTag

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, cacheKey); err == nil && raw != "" {
			var tag domain.IdTag
			if err := json.Unmarshal([]byte(raw), &tag); err == nil {
				return &tag
			}
		}
	}

	tag, err := s.repos.IdTags().FindByTag(ctx, idTag)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("id tag lookup failed", zap.String("id_tag", idTag), zap.Error(err))
		}
		return nil
	}

	if s.cache != nil {
		if raw, err := json.Marshal(tag); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(raw), idTagCacheTTL); err != nil {
				s.logger.Debug("id tag cache write failed", zap.Error(err))
			}
		}
	}
	return tag
}

// InvalidateIdTag drops the cached entry after an update through REST.
func (s *Service) InvalidateIdTag(ctx context.Context, idTag string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, "idtag:"+idTag); err != nil {
		s.logger.Debug("id tag cache invalidation failed", zap.Error(err))
	}
}

// StakeLimit records a charging limit to be attached to the next
// transaction started on the connector. Take-on-use.
func (s *Service) StakeLimit(chargePointID string, connectorID int, limit domain.ChargingLimit) {
	s.limitMu.Lock()
	s.pendingLimits[limitKey{chargePointID, connectorID}] = limit
	s.limitMu.Unlock()
}

func (s *Service) takeLimit(chargePointID string, connectorID int) (domain.ChargingLimit, bool) {
	s.limitMu.Lock()
	defer s.limitMu.Unlock()
	key := limitKey{chargePointID, connectorID}
	limit, ok := s.pendingLimits[key]
	if ok {
		delete(s.pendingLimits, key)
	}
	return limit, ok
}

// StartTransaction authorizes the tag and creates an Active transaction.
// Invalid tags reply transactionId 0 without creating a row; a second
// active transaction on the same connector replies ConcurrentTx.
func (s *Service) StartTransaction(ctx context.Context, chargePointID string, connectorID int, idTag string, meterStart int, startedAt time.Time, ocppTxID string) (int, domain.AuthorizationStatus, error) {
	status, _ := s.Authorize(ctx, chargePointID, idTag)
	if status != domain.AuthorizationAccepted {
		return 0, status, nil
	}

	if existing, err := s.repos.Transactions().FindActiveByConnector(ctx, chargePointID, connectorID); err == nil && existing != nil {
		s.logger.Warn("start rejected, connector already has an active transaction",
			zap.String("charge_point_id", chargePointID),
			zap.Int("connector_id", connectorID),
			zap.Int("existing_transaction_id", existing.ID))
		return 0, domain.AuthorizationConcurrentTx, nil
	}

	tx := &domain.Transaction{
		ChargePointID:     chargePointID,
		ConnectorID:       connectorID,
		IdTag:             idTag,
		MeterStart:        meterStart,
		StartedAt:         startedAt,
		Status:            domain.TransactionStatusActive,
		OcppTransactionID: ocppTxID,
	}

	if limit, ok := s.takeLimit(chargePointID, connectorID); ok {
		lt := limit.Type
		lv := limit.Value
		tx.LimitType = &lt
		tx.LimitValue = &lv
	}

	if err := s.repos.Transactions().Save(ctx, tx); err != nil {
		return 0, domain.AuthorizationInvalid, fmt.Errorf("saving transaction: %w", err)
	}

	s.bus.Publish(events.TransactionStarted{
		ChargePointID: chargePointID,
		ConnectorID:   connectorID,
		TransactionID: tx.ID,
		IdTag:         idTag,
		MeterStart:    meterStart,
		Timestamp:     startedAt,
	})

	return tx.ID, domain.AuthorizationAccepted, nil
}

// StopTransaction completes a transaction, publishes the stopped event and
// then triggers billing, which emits the billed event. Stopping twice is
// idempotent.
func (s *Service) StopTransaction(ctx context.Context, chargePointID string, transactionID, meterStop int, stoppedAt time.Time, reason string) (*domain.Transaction, error) {
	tx, err := s.repos.Transactions().FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %d: %w", transactionID, err)
	}

	if !tx.IsActive() {
		return tx, nil
	}

	tx.Stop(meterStop, reason, stoppedAt)
	if err := s.repos.Transactions().Update(ctx, tx); err != nil {
		return nil, fmt.Errorf("updating transaction %d: %w", transactionID, err)
	}

	// TransactionStopped goes out before the billed event so consumers
	// see the lifecycle in order; costs travel on TransactionBilled.
	s.bus.Publish(events.TransactionStopped{
		ChargePointID:     chargePointID,
		TransactionID:     tx.ID,
		IdTag:             tx.IdTag,
		MeterStop:         meterStop,
		EnergyConsumedKwh: tx.LiveEnergyConsumedKwh(),
		Reason:            reason,
		Timestamp:         stoppedAt,
	})

	if _, err := s.billing.BillTransaction(ctx, tx); err != nil {
		s.logger.Error("billing failed",
			zap.Int("transaction_id", tx.ID),
			zap.Error(err))
	}

	return tx, nil
}

// BillingFor returns the billing record of a stopped transaction, or nil
// when none was produced yet.
func (s *Service) BillingFor(ctx context.Context, transactionID int) *domain.TransactionBilling {
	record, err := s.repos.Billing().FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil
	}
	return record
}

// StopByOcppID resolves a 2.x wire transaction id and stops it.
func (s *Service) StopByOcppID(ctx context.Context, chargePointID, ocppTxID string, meterStop int, stoppedAt time.Time, reason string) (*domain.Transaction, error) {
	tx, err := s.repos.Transactions().FindByOcppID(ctx, ocppTxID)
	if err != nil {
		return nil, fmt.Errorf("resolving transaction %q: %w", ocppTxID, err)
	}
	return s.StopTransaction(ctx, chargePointID, tx.ID, meterStop, stoppedAt, reason)
}

// HandleMeterValues updates the transaction's live fields and enforces any
// charging limit by issuing an asynchronous remote stop.
func (s *Service) HandleMeterValues(ctx context.Context, chargePointID string, connectorID int, transactionID *int, sample MeterSample, at time.Time) error {
	event := events.MeterValuesReceived{
		ChargePointID: chargePointID,
		ConnectorID:   connectorID,
		TransactionID: transactionID,
		PowerW:        sample.PowerW,
		Soc:           sample.Soc,
		Timestamp:     at,
	}
	if sample.EnergyWh != nil {
		wh := float64(*sample.EnergyWh)
		event.EnergyWh = &wh
	}

	if transactionID != nil {
		tx, err := s.repos.Transactions().FindByID(ctx, *transactionID)
		if err != nil {
			s.logger.Warn("meter values for unknown transaction",
				zap.String("charge_point_id", chargePointID),
				zap.Int("transaction_id", *transactionID))
		} else if tx.IsActive() {
			tx.UpdateMeter(sample.EnergyWh, sample.PowerW, sample.Soc, at)
			if err := s.repos.Transactions().Update(ctx, tx); err != nil {
				return fmt.Errorf("updating live meter data: %w", err)
			}
			if sample.EnergyWh != nil {
				consumed := tx.LiveEnergyConsumedKwh()
				event.EnergyConsumedWh = new(float64)
				*event.EnergyConsumedWh = consumed * 1000
			}
			s.enforceLimit(ctx, tx)
		}
	}

	s.bus.Publish(event)
	return nil
}

// HandleDataTransfer publishes the vendor payload verbatim; no vendor
// handlers are registered, so every transfer is accepted.
func (s *Service) HandleDataTransfer(ctx context.Context, chargePointID, vendorID, messageID string, data json.RawMessage) {
	s.bus.Publish(events.DataTransferReceived{
		ChargePointID: chargePointID,
		VendorID:      vendorID,
		MessageID:     messageID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
	})
}

// UpdateByOcppID applies a meter sample to a 2.x transaction.
func (s *Service) UpdateByOcppID(ctx context.Context, chargePointID, ocppTxID string, connectorID int, sample MeterSample, at time.Time) error {
	tx, err := s.repos.Transactions().FindByOcppID(ctx, ocppTxID)
	if err != nil {
		return fmt.Errorf("resolving transaction %q: %w", ocppTxID, err)
	}
	return s.HandleMeterValues(ctx, chargePointID, connectorID, &tx.ID, sample, at)
}

func (s *Service) enforceLimit(ctx context.Context, tx *domain.Transaction) {
	if tx.LimitType == nil || tx.LimitValue == nil {
		return
	}

	reached := false
	switch *tx.LimitType {
	case domain.LimitTypeEnergy:
		reached = tx.LiveEnergyConsumedKwh() >= *tx.LimitValue
	case domain.LimitTypeSoc:
		reached = tx.CurrentSoc != nil && *tx.CurrentSoc >= *tx.LimitValue
	case domain.LimitTypeAmount:
		breakdown, err := s.billing.CostBreakdown(ctx, tx)
		if err != nil {
			s.logger.Warn("amount limit check failed", zap.Int("transaction_id", tx.ID), zap.Error(err))
			return
		}
		reached = float64(breakdown.Total) >= *tx.LimitValue
	}
	if !reached {
		return
	}

	s.stopperMu.RLock()
	stopper := s.stopper
	s.stopperMu.RUnlock()
	if stopper == nil {
		s.logger.Warn("charging limit reached but no remote stopper wired",
			zap.Int("transaction_id", tx.ID))
		return
	}

	s.logger.Info("charging limit reached, issuing remote stop",
		zap.Int("transaction_id", tx.ID),
		zap.String("limit_type", string(*tx.LimitType)),
		zap.Float64("limit_value", *tx.LimitValue))

	// the remote stop awaits a CP reply; never block the reader loop on it
	go func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 35*time.Second)
		defer cancel()
		if _, err := stopper.RemoteStop(stopCtx, tx.ChargePointID, tx.ID); err != nil {
			s.logger.Warn("limit-triggered remote stop failed",
				zap.Int("transaction_id", tx.ID),
				zap.Error(err))
		}
	}()
}

// ForceStop stops a transaction from the central side: it tries a remote
// stop first and closes the row locally regardless, so stuck sessions can
// always be terminated.
func (s *Service) ForceStop(ctx context.Context, transactionID int, reason string) (*domain.Transaction, error) {
	tx, err := s.repos.Transactions().FindByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("loading transaction %d: %w", transactionID, err)
	}
	if !tx.IsActive() {
		return tx, nil
	}

	s.stopperMu.RLock()
	stopper := s.stopper
	s.stopperMu.RUnlock()
	if stopper != nil {
		if _, err := stopper.RemoteStop(ctx, tx.ChargePointID, tx.ID); err != nil {
			s.logger.Warn("force stop: remote stop failed, closing locally",
				zap.Int("transaction_id", tx.ID),
				zap.Error(err))
		}
	}

	meterStop := tx.MeterStart
	if tx.LastMeterValue != nil {
		meterStop = *tx.LastMeterValue
	}
	return s.StopTransaction(ctx, tx.ChargePointID, tx.ID, meterStop, time.Now().UTC(), reason)
}

// MarkDisconnected flips the station offline after its session drops.
func (s *Service) MarkDisconnected(ctx context.Context, chargePointID string) {
	if err := s.repos.ChargePoints().UpdateStatus(ctx, chargePointID, domain.ChargePointStatusOffline); err != nil {
		s.logger.Warn("marking charge point offline failed",
			zap.String("charge_point_id", chargePointID),
			zap.Error(err))
	}
}

// SetPassword provisions the Basic-Auth credential for a station.
func (s *Service) SetPassword(ctx context.Context, chargePointID, password string) error {
	cp, err := s.repos.ChargePoints().FindByID(ctx, chargePointID)
	if err != nil {
		return fmt.Errorf("loading charge point: %w", err)
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	cp.PasswordHash = hash
	if err := s.repos.ChargePoints().Save(ctx, cp); err != nil {
		return fmt.Errorf("saving charge point: %w", err)
	}
	return nil
}

// VerifyPassword checks Basic-Auth credentials on the WebSocket upgrade.
// Stations without a configured hash are admitted without auth.
func (s *Service) VerifyPassword(ctx context.Context, chargePointID, password string) bool {
	cp, err := s.repos.ChargePoints().FindByID(ctx, chargePointID)
	if err != nil || cp.PasswordHash == "" {
		return true
	}
	return s.hasher.Verify(cp.PasswordHash, password)
}
