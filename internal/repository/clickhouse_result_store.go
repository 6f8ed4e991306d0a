package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	domrepo "FinSight/internal/domain/repository"
	pkgch "FinSight/pkg/clickhouse"
	applogger "FinSight/pkg/logger"
)

const (
	snapshotsTable    = "finsight.indicator_snapshots"
	anomaliesTable    = "finsight.anomalies"
	correlationsTable = "finsight.correlations"
	performanceTable  = "finsight.performance_summaries"
	activeRunTable    = "finsight.active_run"

	insertChunk = 1000
)

// activeRunSubquery resolves the currently visible run for reads.
const activeRunSubquery = "(SELECT run_id FROM " + activeRunTable + " ORDER BY activated_at DESC LIMIT 1)"

// CHResultStore persists pipeline runs in ClickHouse. Every result row
// carries its run_id; reads resolve the active run pointer, so a run becomes
// visible atomically when ActivateRun lands and an abandoned run is never
// read.
type CHResultStore struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewCHResultStore(ch *pkgch.Client) *CHResultStore {
	return &CHResultStore{db: ch.DB()}
}

// SetLogger injects a structured logger.
func (s *CHResultStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CHResultStore) WriteRun(ctx context.Context, runID string, res *domrepo.RunResults) error {
	start := time.Now()
	if err := s.writeSnapshots(ctx, runID, res.Snapshots); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	if err := s.writeAnomalies(ctx, runID, res.Anomalies); err != nil {
		return fmt.Errorf("write anomalies: %w", err)
	}
	if err := s.writeCorrelations(ctx, runID, res.Correlations); err != nil {
		return fmt.Errorf("write correlations: %w", err)
	}
	if err := s.writeSummaries(ctx, runID, res.Summaries); err != nil {
		return fmt.Errorf("write summaries: %w", err)
	}
	if s.l != nil {
		s.l.Info("clickhouse write_run ok",
			applogger.String("run_id", runID),
			applogger.Int("snapshots", len(res.Snapshots)),
			applogger.Int("anomalies", len(res.Anomalies)),
			applogger.Int("correlations", len(res.Correlations)),
			applogger.Int("summaries", len(res.Summaries)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// ActivateRun flips the visible run pointer. Rows from superseded runs are
// cleared lazily by table TTL, not here.
func (s *CHResultStore) ActivateRun(ctx context.Context, runID string) error {
	q := fmt.Sprintf("INSERT INTO %s (run_id, activated_at) VALUES (?, ?)", activeRunTable)
	if _, err := s.db.ExecContext(ctx, q, runID, time.Now().UTC()); err != nil {
		return fmt.Errorf("activate run: %w", err)
	}
	return nil
}

func (s *CHResultStore) Close() error {
	return nil // Managed by pkg
}

func (s *CHResultStore) writeSnapshots(ctx context.Context, runID string, snaps []models.IndicatorSnapshot) error {
	cols := "(run_id, asset_key, class, date, close, volume, daily_return, moving_avg, volume_ma, volatility, rsi, bollinger_mid, bollinger_up, bollinger_low, sharpe_ratio, max_drawdown, ma_signal, rsi_signal)"
	return insertChunked(ctx, s.db, snapshotsTable, cols, 18, len(snaps), func(i int) ([]interface{}, error) {
		sn := &snaps[i]
		ma, err := json.Marshal(sn.MovingAvg)
		if err != nil {
			return nil, fmt.Errorf("marshal moving averages: %w", err)
		}
		return []interface{}{
			runID, sn.AssetKey, string(sn.Class), sn.Date, sn.Close, sn.Volume,
			sn.DailyReturn, string(ma), sn.VolumeMA, sn.Volatility, sn.RSI,
			sn.BollingerMid, sn.BollingerUp, sn.BollingerLow,
			sn.SharpeRatio, sn.MaxDrawdown,
			string(sn.MASignal), string(sn.RSISignal),
		}, nil
	})
}

func (s *CHResultStore) writeAnomalies(ctx context.Context, runID string, recs []models.AnomalyRecord) error {
	cols := "(run_id, asset_key, asset_name, class, date, mode, daily_return, return_z, volume_z, price_gap, tags, score, severity)"
	return insertChunked(ctx, s.db, anomaliesTable, cols, 13, len(recs), func(i int) ([]interface{}, error) {
		a := &recs[i]
		return []interface{}{
			runID, a.AssetKey, a.AssetName, string(a.Class), a.Date, string(a.Mode),
			a.DailyReturn, a.ReturnZScore, a.VolumeZScore, a.PriceGap,
			strings.Join(a.Tags, ","), a.Score, string(a.Severity),
		}, nil
	})
}

func (s *CHResultStore) writeCorrelations(ctx context.Context, runID string, pairs []models.CorrelationPair) error {
	cols := "(run_id, asset1, asset2, as_of, method, correlation, observations, strength, relationship)"
	return insertChunked(ctx, s.db, correlationsTable, cols, 9, len(pairs), func(i int) ([]interface{}, error) {
		p := &pairs[i]
		return []interface{}{
			runID, p.Asset1, p.Asset2, p.AsOf, string(p.Method),
			p.Correlation, int32(p.Observations), string(p.Strength), string(p.Relationship),
		}, nil
	})
}

func (s *CHResultStore) writeSummaries(ctx context.Context, runID string, sums []models.PerformanceSummary) error {
	cols := "(run_id, asset_key, asset_name, class, as_of, current_price, current_return, current_vol, current_rsi, total_return, annualized_return, annualized_volatility, sharpe_ratio, max_drawdown, beta_proxy, dominant_ma_signal, dominant_rsi_signal, days_of_history, rank_total_return, rank_annualized_return, rank_low_volatility, rank_sharpe, risk_level, risk_return_profile)"
	return insertChunked(ctx, s.db, performanceTable, cols, 24, len(sums), func(i int) ([]interface{}, error) {
		p := &sums[i]
		return []interface{}{
			runID, p.AssetKey, p.AssetName, string(p.Class), p.AsOf,
			p.CurrentPrice, p.CurrentReturn, p.CurrentVol, p.CurrentRSI,
			p.TotalReturn, p.AnnualizedReturn, p.AnnualizedVolatility,
			p.SharpeRatio, p.MaxDrawdown, p.BetaProxy,
			string(p.DominantMASignal), string(p.DominantRSISignal),
			int32(p.DaysOfHistory),
			int32(p.RankTotalReturn), int32(p.RankAnnualizedReturn),
			int32(p.RankLowVolatility), int32(p.RankSharpe),
			string(p.RiskLevel), string(p.RiskReturnProfile),
		}, nil
	})
}

// insertChunked builds multi-row VALUES inserts to keep round-trips low and
// statement sizes bounded.
func insertChunked(ctx context.Context, db *sql.DB, table, cols string, argc, total int, row func(int) ([]interface{}, error)) error {
	if total == 0 {
		return nil
	}
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", argc), ", ") + ")"
	for start := 0; start < total; start += insertChunk {
		end := start + insertChunk
		if end > total {
			end = total
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*argc)
		for i := start; i < end; i++ {
			rowArgs, err := row(i)
			if err != nil {
				return err
			}
			values = append(values, placeholder)
			args = append(args, rowArgs...)
		}
		q := fmt.Sprintf("INSERT INTO %s %s VALUES %s", table, cols, strings.Join(values, ","))
		if _, err := db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

// Read-side queries below serve the HTTP views from the active run only.

func (s *CHResultStore) Indicators(ctx context.Context, assetKey string, from, to time.Time, limit int) ([]models.IndicatorSnapshot, error) {
	q := fmt.Sprintf(`
        SELECT asset_key, class, date, close, volume, daily_return, moving_avg, volume_ma, volatility, rsi, bollinger_mid, bollinger_up, bollinger_low, sharpe_ratio, max_drawdown, ma_signal, rsi_signal
        FROM %s
        WHERE run_id = %s AND asset_key = ?`, snapshotsTable, activeRunSubquery)
	args := []interface{}{assetKey}
	if !from.IsZero() {
		q += " AND date >= ?"
		args = append(args, from)
	}
	if !to.IsZero() {
		q += " AND date <= ?"
		args = append(args, to)
	}
	q += " ORDER BY date DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get indicators: %w", err)
	}
	defer rows.Close()

	out := make([]models.IndicatorSnapshot, 0, limit)
	for rows.Next() {
		var sn models.IndicatorSnapshot
		var class, maJSON, maSignal, rsiSignal string
		var ret, volMA, vol, rsi, bMid, bUp, bLow, sharpe, dd sql.NullFloat64
		if err := rows.Scan(&sn.AssetKey, &class, &sn.Date, &sn.Close, &sn.Volume,
			&ret, &maJSON, &volMA, &vol, &rsi, &bMid, &bUp, &bLow, &sharpe, &dd,
			&maSignal, &rsiSignal); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		sn.Class = models.AssetClass(class)
		sn.MASignal = models.CrossSignal(maSignal)
		sn.RSISignal = models.RSIRegime(rsiSignal)
		sn.DailyReturn = fromNull(ret)
		sn.VolumeMA = fromNull(volMA)
		sn.Volatility = fromNull(vol)
		sn.RSI = fromNull(rsi)
		sn.BollingerMid = fromNull(bMid)
		sn.BollingerUp = fromNull(bUp)
		sn.BollingerLow = fromNull(bLow)
		sn.SharpeRatio = fromNull(sharpe)
		sn.MaxDrawdown = fromNull(dd)
		if maJSON != "" {
			if err := json.Unmarshal([]byte(maJSON), &sn.MovingAvg); err != nil {
				return nil, fmt.Errorf("unmarshal moving averages: %w", err)
			}
		}
		out = append(out, sn)
	}
	return out, rows.Err()
}

func (s *CHResultStore) Anomalies(ctx context.Context, assetKey string, since time.Time, minSeverity models.Severity, limit int) ([]models.AnomalyRecord, error) {
	q := fmt.Sprintf(`
        SELECT asset_key, asset_name, class, date, mode, daily_return, return_z, volume_z, price_gap, tags, score, severity
        FROM %s
        WHERE run_id = %s`, anomaliesTable, activeRunSubquery)
	var args []interface{}
	if assetKey != "" {
		q += " AND asset_key = ?"
		args = append(args, assetKey)
	}
	if !since.IsZero() {
		q += " AND date >= ?"
		args = append(args, since)
	}
	q += " ORDER BY date DESC, score DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get anomalies: %w", err)
	}
	defer rows.Close()

	out := make([]models.AnomalyRecord, 0, limit)
	for rows.Next() {
		var a models.AnomalyRecord
		var class, mode, tags, severity string
		var ret, rz, vz, gap sql.NullFloat64
		if err := rows.Scan(&a.AssetKey, &a.AssetName, &class, &a.Date, &mode,
			&ret, &rz, &vz, &gap, &tags, &a.Score, &severity); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Class = models.AssetClass(class)
		a.Mode = models.DetectionMode(mode)
		a.Severity = models.Severity(severity)
		a.DailyReturn = fromNull(ret)
		a.ReturnZScore = fromNull(rz)
		a.VolumeZScore = fromNull(vz)
		a.PriceGap = fromNull(gap)
		if tags != "" {
			a.Tags = strings.Split(tags, ",")
		}
		// severity ordering lives in Go, not in the table
		if a.Severity.Rank() < minSeverity.Rank() {
			continue
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *CHResultStore) Correlations(ctx context.Context, assetKey string, minAbs float64, limit int) ([]models.CorrelationPair, error) {
	q := fmt.Sprintf(`
        SELECT asset1, asset2, as_of, method, correlation, observations, strength, relationship
        FROM %s
        WHERE run_id = %s AND abs(correlation) >= ?`, correlationsTable, activeRunSubquery)
	args := []interface{}{minAbs}
	if assetKey != "" {
		q += " AND asset1 = ?"
		args = append(args, assetKey)
	}
	q += " ORDER BY abs(correlation) DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get correlations: %w", err)
	}
	defer rows.Close()

	out := make([]models.CorrelationPair, 0, limit)
	for rows.Next() {
		var p models.CorrelationPair
		var method, strength, rel string
		var obs int32
		if err := rows.Scan(&p.Asset1, &p.Asset2, &p.AsOf, &method,
			&p.Correlation, &obs, &strength, &rel); err != nil {
			return nil, fmt.Errorf("scan correlation: %w", err)
		}
		p.Method = models.CorrelationMethod(method)
		p.Observations = int(obs)
		p.Strength = models.CorrelationStrength(strength)
		p.Relationship = models.Relationship(rel)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *CHResultStore) Performance(ctx context.Context, class models.AssetClass, limit int) ([]models.PerformanceSummary, error) {
	q := fmt.Sprintf(`
        SELECT asset_key, asset_name, class, as_of, current_price, current_return, current_vol, current_rsi, total_return, annualized_return, annualized_volatility, sharpe_ratio, max_drawdown, beta_proxy, dominant_ma_signal, dominant_rsi_signal, days_of_history, rank_total_return, rank_annualized_return, rank_low_volatility, rank_sharpe, risk_level, risk_return_profile
        FROM %s
        WHERE run_id = %s`, performanceTable, activeRunSubquery)
	var args []interface{}
	if class != "" {
		q += " AND class = ?"
		args = append(args, string(class))
	}
	q += " ORDER BY rank_total_return ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get performance: %w", err)
	}
	defer rows.Close()

	out := make([]models.PerformanceSummary, 0, limit)
	for rows.Next() {
		var p models.PerformanceSummary
		var cls, maSig, rsiSig, risk, profile string
		var curRet, curVol, curRSI, totRet, annRet, annVol, sharpe, dd, beta sql.NullFloat64
		var days, r1, r2, r3, r4 int32
		if err := rows.Scan(&p.AssetKey, &p.AssetName, &cls, &p.AsOf, &p.CurrentPrice,
			&curRet, &curVol, &curRSI, &totRet, &annRet, &annVol, &sharpe, &dd, &beta,
			&maSig, &rsiSig, &days, &r1, &r2, &r3, &r4, &risk, &profile); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		p.Class = models.AssetClass(cls)
		p.CurrentReturn = fromNull(curRet)
		p.CurrentVol = fromNull(curVol)
		p.CurrentRSI = fromNull(curRSI)
		p.TotalReturn = fromNull(totRet)
		p.AnnualizedReturn = fromNull(annRet)
		p.AnnualizedVolatility = fromNull(annVol)
		p.SharpeRatio = fromNull(sharpe)
		p.MaxDrawdown = fromNull(dd)
		p.BetaProxy = fromNull(beta)
		p.DominantMASignal = models.CrossSignal(maSig)
		p.DominantRSISignal = models.RSIRegime(rsiSig)
		p.DaysOfHistory = int(days)
		p.RankTotalReturn = int(r1)
		p.RankAnnualizedReturn = int(r2)
		p.RankLowVolatility = int(r3)
		p.RankSharpe = int(r4)
		p.RiskLevel = models.RiskLevel(risk)
		p.RiskReturnProfile = models.RiskReturnProfile(profile)
		out = append(out, p)
	}
	return out, rows.Err()
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

var (
	_ domrepo.ResultStore  = (*CHResultStore)(nil)
	_ domrepo.ResultReader = (*CHResultStore)(nil)
)
