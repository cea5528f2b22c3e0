package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/evetools/indy/internal/apperror"
	"github.com/evetools/indy/internal/gateway"
	"github.com/evetools/indy/internal/platform/logger"
	"github.com/evetools/indy/internal/repos"
	"github.com/evetools/indy/internal/types"
	"github.com/evetools/indy/internal/utils"
)

// Standup Market Hub service module; structures carrying it expose a
// player market worth polling.
const marketHubTypeID int32 = 35892

// Handler executes one claimed task and returns human-readable log lines.
type Handler func(ctx context.Context, task *types.WorkerTask) ([]string, error)

// Tasks owns every task handler and its dependencies.
type Tasks struct {
	log        *logger.Logger
	gw         gateway.Client
	creds      *gateway.CredentialCache
	orders     repos.MarketOrderRepo
	indices    repos.IndustryIndexRepo
	indJobs    repos.IndustryJobRepo
	owned      repos.OwnedRepo
	contracts  repos.ContractRepo
	items      repos.ItemRepo
	structures repos.StructureRepo
	queue      repos.WorkerTaskRepo
	db         *gorm.DB

	npcRegions []int64
}

func NewTasks(
	baseLog *logger.Logger,
	gw gateway.Client,
	creds *gateway.CredentialCache,
	orders repos.MarketOrderRepo,
	indices repos.IndustryIndexRepo,
	indJobs repos.IndustryJobRepo,
	owned repos.OwnedRepo,
	contracts repos.ContractRepo,
	items repos.ItemRepo,
	structures repos.StructureRepo,
	queue repos.WorkerTaskRepo,
	db *gorm.DB,
) *Tasks {
	log := baseLog.With("service", "WorkerTasks")
	return &Tasks{
		log:        log,
		gw:         gw,
		creds:      creds,
		orders:     orders,
		indices:    indices,
		indJobs:    indJobs,
		owned:      owned,
		contracts:  contracts,
		items:      items,
		structures: structures,
		queue:      queue,
		db:         db,
		npcRegions: parseRegions(utils.GetEnv("SYNC_REGIONS", "10000002", log)),
	}
}

func parseRegions(csv string) []int64 {
	var out []int64
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Handlers returns the dispatch table keyed by task kind.
func (t *Tasks) Handlers() map[string]Handler {
	return map[string]Handler{
		types.TaskSync:                  t.sync,
		types.TaskLatestNpc:             t.latestNpc,
		types.TaskLatestPlayer:          t.latestPlayer,
		types.TaskLatestRegion:          t.latestNpc,
		types.TaskPublicContracts:       t.publicContracts,
		types.TaskPublicContractItems:   t.publicContractItems,
		types.TaskCharacterOrders:       t.ownOrders,
		types.TaskCorporationOrders:     t.ownOrders,
		types.TaskPrices:                t.prices,
		types.TaskSystemIndex:           t.systemIndex,
		types.TaskCharacterAssets:       t.assets,
		types.TaskCorporationAssets:     t.assets,
		types.TaskCharacterBlueprints:   t.blueprints,
		types.TaskCorporationBlueprints: t.blueprints,
		types.TaskCleanup:               t.cleanup,
	}
}

type taskPayload struct {
	OwnerID     int64 `json:"owner_id,omitempty"`
	Corporation bool  `json:"corporation,omitempty"`
	StructureID int64 `json:"structure_id,omitempty"`
	RegionID    int64 `json:"region_id,omitempty"`
	ContractID  int64 `json:"contract_id,omitempty"`
}

func decodePayload(task *types.WorkerTask) (taskPayload, error) {
	var p taskPayload
	if len(task.AdditionalData) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(task.AdditionalData, &p); err != nil {
		return p, apperror.Validation("task %s: bad payload: %v", task.ID, err)
	}
	return p, nil
}

// sync is the sole producer of per-entity rows. It walks current structures,
// regions and cached credentials and enqueues one row per target unless an
// equivalent row is already pending.
func (t *Tasks) sync(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	now := time.Now().UTC()
	var logs []string

	enqueue := func(kind string, payload map[string]any) error {
		_, created, err := t.queue.EnqueueUnlessPending(ctx, nil, kind, payload, nil)
		if err != nil {
			return err
		}
		if created {
			logs = append(logs, fmt.Sprintf("enqueued %s %v", kind, payload))
		}
		return nil
	}

	for _, region := range t.npcRegions {
		if err := enqueue(types.TaskLatestNpc, map[string]any{"region_id": region}); err != nil {
			return logs, err
		}
		if err := enqueue(types.TaskPublicContracts, map[string]any{"region_id": region}); err != nil {
			return logs, err
		}
	}

	markets, err := t.structures.ListWithService(ctx, nil, marketHubTypeID)
	if err != nil {
		return logs, err
	}
	for _, s := range markets {
		if err := enqueue(types.TaskLatestPlayer, map[string]any{"structure_id": s.StructureID}); err != nil {
			return logs, err
		}
	}

	for _, ownerID := range t.creds.Owners() {
		cred, ok := t.creds.Get(ownerID, now)
		if !ok {
			continue
		}
		payload := map[string]any{"owner_id": ownerID, "corporation": cred.Corporation}
		kinds := []string{types.TaskCharacterOrders, types.TaskCharacterAssets, types.TaskCharacterBlueprints}
		if cred.Corporation {
			kinds = []string{types.TaskCorporationOrders, types.TaskCorporationAssets, types.TaskCorporationBlueprints}
		}
		for _, kind := range kinds {
			if err := enqueue(kind, payload); err != nil {
				return logs, err
			}
		}
	}

	for _, kind := range []string{types.TaskPrices, types.TaskSystemIndex} {
		if err := enqueue(kind, nil); err != nil {
			return logs, err
		}
	}

	// Cleanup belongs at the maintenance window, not now.
	downtime := nextDowntime(now)
	if _, created, err := t.queue.EnqueueUnlessPending(ctx, nil, types.TaskCleanup, nil, &downtime); err != nil {
		return logs, err
	} else if created {
		logs = append(logs, fmt.Sprintf("enqueued %s for %s", types.TaskCleanup, downtime.Format(time.RFC3339)))
	}

	unfetched, err := t.contracts.ListUnfetched(ctx, nil, 50)
	if err != nil {
		return logs, err
	}
	for _, c := range unfetched {
		err := enqueue(types.TaskPublicContractItems, map[string]any{"contract_id": c.ContractID})
		if err != nil {
			return logs, err
		}
	}

	return logs, nil
}

func recordsToOrders(records []gateway.MarketOrderRecord, regionID int64) []types.MarketOrder {
	out := make([]types.MarketOrder, 0, len(records))
	for _, rec := range records {
		out = append(out, types.MarketOrder{
			OrderID:     rec.OrderID,
			StructureID: rec.StructureID,
			RegionID:    regionID,
			TypeID:      rec.TypeID,
			Remaining:   rec.Remaining,
			Price:       rec.Price,
			Expires:     rec.Expires,
			IsBuy:       rec.IsBuy,
		})
	}
	return out
}

// latestNpc refreshes the latest-order snapshot of one NPC region. Orders
// arrive region-wide and are applied per station.
func (t *Tasks) latestNpc(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	records, _, err := t.gw.MarketOrdersRegion(ctx, p.RegionID)
	if apperror.Benign(err) {
		return []string{"region unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	byStation := map[int64][]types.MarketOrder{}
	for _, o := range recordsToOrders(records, p.RegionID) {
		byStation[o.StructureID] = append(byStation[o.StructureID], o)
	}
	for stationID, orders := range byStation {
		if err := t.orders.ReplaceSnapshot(ctx, nil, stationID, orders, now); err != nil {
			return nil, err
		}
	}
	return []string{fmt.Sprintf("region %d: %d orders over %d stations", p.RegionID, len(records), len(byStation))}, nil
}

func (t *Tasks) latestPlayer(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	token := t.anyToken()
	if token == "" {
		return nil, apperror.Validation("no credential available for structure %d", p.StructureID)
	}
	records, _, err := t.gw.MarketOrdersStructure(ctx, p.StructureID, token)
	if apperror.Benign(err) {
		return []string{"structure unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	orders := recordsToOrders(records, 0)
	for i := range orders {
		orders[i].StructureID = p.StructureID
	}
	if err := t.orders.ReplaceSnapshot(ctx, nil, p.StructureID, orders, now); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("structure %d: %d orders", p.StructureID, len(records))}, nil
}

// anyToken returns an arbitrary live token for endpoints that only need
// docking access rather than ownership.
func (t *Tasks) anyToken() string {
	now := time.Now().UTC()
	for _, owner := range t.creds.Owners() {
		if cred, ok := t.creds.Get(owner, now); ok {
			return cred.Token
		}
	}
	return ""
}

// ownOrders also refreshes the owner's industry jobs in the same pass, since
// both feed the reconciler and share the credential.
func (t *Tasks) ownOrders(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	cred, ok := t.creds.Get(p.OwnerID, now)
	if !ok {
		return nil, apperror.Validation("no credential for owner %d", p.OwnerID)
	}

	var records []gateway.MarketOrderRecord
	if p.Corporation {
		records, err = t.gw.CorporationOrders(ctx, p.OwnerID, cred.Token)
	} else {
		records, err = t.gw.CharacterOrders(ctx, p.OwnerID, cred.Token)
	}
	if err != nil && !apperror.Benign(err) {
		return nil, err
	}
	if err := t.orders.UpsertOwn(ctx, nil, recordsToOrders(records, 0), now); err != nil {
		return nil, err
	}

	jobs, err := t.gw.IndustryJobs(ctx, p.OwnerID, p.Corporation, cred.Token)
	if err != nil && !apperror.Benign(err) {
		return nil, err
	}
	rows := make([]types.IndustryJob, 0, len(jobs))
	for _, j := range jobs {
		activity := types.ActivityManufacturing
		if j.ActivityID == 9 {
			activity = types.ActivityReaction
		}
		rows = append(rows, types.IndustryJob{
			JobID:       j.JobID,
			OwnerID:     p.OwnerID,
			TypeID:      j.ProductID,
			Runs:        j.Runs,
			StructureID: j.StructureID,
			Activity:    activity,
			Cost:        j.Cost,
			EndDate:     j.EndDate,
		})
	}
	if err := t.indJobs.UpsertBatch(ctx, nil, rows); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("owner %d: %d orders, %d industry jobs",
		p.OwnerID, len(records), len(rows))}, nil
}

func (t *Tasks) prices(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	records, err := t.gw.Prices(ctx)
	if apperror.Benign(err) {
		return []string{"prices unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	updates := make([]repos.AdjustedPrice, 0, len(records))
	for _, rec := range records {
		updates = append(updates, repos.AdjustedPrice{TypeID: rec.TypeID, Price: rec.AdjustedPrice})
	}
	if err := t.items.UpdateAdjustedPrices(ctx, nil, updates); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%d adjusted prices", len(updates))}, nil
}

func (t *Tasks) systemIndex(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	records, err := t.gw.SystemIndices(ctx)
	if apperror.Benign(err) {
		return []string{"indices unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rows := make([]types.IndustryIndex, 0, len(records))
	for _, rec := range records {
		rows = append(rows, types.IndustryIndex{
			SystemID:         rec.SystemID,
			Timestamp:        now,
			Manufacturing:    rec.Manufacturing,
			Reaction:         rec.Reaction,
			Copying:          rec.Copying,
			Invention:        rec.Invention,
			ResearchMaterial: rec.ResearchME,
			ResearchTime:     rec.ResearchTE,
		})
	}
	if err := t.indices.Append(ctx, nil, rows); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("%d system indices", len(rows))}, nil
}

func (t *Tasks) assets(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	cred, ok := t.creds.Get(p.OwnerID, time.Now().UTC())
	if !ok {
		return nil, apperror.Validation("no credential for owner %d", p.OwnerID)
	}
	records, err := t.gw.Assets(ctx, p.OwnerID, p.Corporation, cred.Token)
	if apperror.Benign(err) {
		return []string{"assets unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rows := make([]types.OwnedAsset, 0, len(records))
	for _, rec := range records {
		rows = append(rows, types.OwnedAsset{
			ItemID:     rec.ItemID,
			TypeID:     rec.TypeID,
			LocationID: rec.LocationID,
			Quantity:   rec.Quantity,
			Flag:       rec.Flag,
			UpdatedAt:  now,
		})
	}
	if err := t.owned.ReplaceAssets(ctx, nil, p.OwnerID, rows); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("owner %d: %d assets", p.OwnerID, len(rows))}, nil
}

func (t *Tasks) blueprints(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	cred, ok := t.creds.Get(p.OwnerID, time.Now().UTC())
	if !ok {
		return nil, apperror.Validation("no credential for owner %d", p.OwnerID)
	}
	records, err := t.gw.Blueprints(ctx, p.OwnerID, p.Corporation, cred.Token)
	if apperror.Benign(err) {
		return []string{"blueprints unchanged"}, nil
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	rows := make([]types.OwnedBlueprint, 0, len(records))
	for _, rec := range records {
		rows = append(rows, types.OwnedBlueprint{
			ItemID:             rec.ItemID,
			TypeID:             rec.TypeID,
			LocationID:         rec.LocationID,
			MaterialEfficiency: rec.MaterialEfficiency,
			TimeEfficiency:     rec.TimeEfficiency,
			Runs:               rec.Runs,
			Quantity:           rec.Quantity,
			UpdatedAt:          now,
		})
	}
	if err := t.owned.ReplaceBlueprints(ctx, nil, p.OwnerID, rows); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("owner %d: %d blueprints", p.OwnerID, len(rows))}, nil
}

func (t *Tasks) publicContracts(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	var total int
	for page := 1; ; page++ {
		records, pages, err := t.gw.PublicContracts(ctx, p.RegionID, page)
		if apperror.Benign(err) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows := make([]types.Contract, 0, len(records))
		for _, rec := range records {
			rows = append(rows, types.Contract{
				ContractID: rec.ContractID,
				IssuerID:   rec.IssuerID,
				Type:       rec.Type,
				Price:      rec.Price,
				Title:      rec.Title,
				DateIssued: rec.DateIssued,
				Expires:    rec.Expires,
			})
		}
		if err := t.contracts.UpsertHeaders(ctx, nil, p.RegionID, rows); err != nil {
			return nil, err
		}
		total += len(rows)
		if page >= pages {
			break
		}
	}
	return []string{fmt.Sprintf("region %d: %d contracts", p.RegionID, total)}, nil
}

func (t *Tasks) publicContractItems(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	p, err := decodePayload(task)
	if err != nil {
		return nil, err
	}
	records, err := t.gw.PublicContractItems(ctx, p.ContractID)
	if err != nil {
		// A vanished contract is terminal for this one-shot; mark it
		// fetched so sync stops reissuing it.
		if !apperror.Retryable(err) {
			_ = t.contracts.SetItems(ctx, nil, p.ContractID, nil)
		}
		return nil, err
	}
	items := make([]types.ContractItem, 0, len(records))
	for _, rec := range records {
		items = append(items, types.ContractItem{
			RecordID:   rec.RecordID,
			TypeID:     rec.TypeID,
			Quantity:   rec.Quantity,
			IsIncluded: rec.IsIncluded,
		})
	}
	if err := t.contracts.SetItems(ctx, nil, p.ContractID, items); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("contract %d: %d items", p.ContractID, len(items))}, nil
}

// cleanup runs at downtime: drops expired contracts and terminal task rows
// older than a week.
func (t *Tasks) cleanup(ctx context.Context, task *types.WorkerTask) ([]string, error) {
	now := time.Now().UTC()
	pruned, err := t.contracts.PruneExpired(ctx, nil, now)
	if err != nil {
		return nil, err
	}
	res := t.db.WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{types.TaskDone, types.TaskError, types.TaskTimeout},
			now.Add(-7*24*time.Hour)).
		Delete(&types.WorkerTask{})
	if res.Error != nil {
		return nil, apperror.Map("cleanup tasks", res.Error)
	}
	return []string{
		fmt.Sprintf("pruned %d contracts", pruned),
		fmt.Sprintf("pruned %d task rows", res.RowsAffected),
	}, nil
}
