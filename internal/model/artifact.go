package model

// Direction is the bias a signal carries.
type Direction uint8

const (
	DirectionBullish Direction = iota
	DirectionBearish
)

func (d Direction) String() string {
	if d == DirectionBullish {
		return "bullish"
	}
	return "bearish"
}

// SignalKind identifies the family a SignalRecord / confluence contributor
// belongs to.
type SignalKind uint8

const (
	SignalDeltaFlip SignalKind = iota
	SignalAbsorption
	SignalStackedImbalance
	SignalConfluence
)

func (k SignalKind) String() string {
	switch k {
	case SignalDeltaFlip:
		return "delta_flip"
	case SignalAbsorption:
		return "absorption"
	case SignalStackedImbalance:
		return "stacked_imbalance"
	case SignalConfluence:
		return "confluence"
	default:
		return "unknown"
	}
}

// AbsorptionType is which side got absorbed.
type AbsorptionType uint8

const (
	AbsorptionBuying AbsorptionType = iota
	AbsorptionSelling
)

func (a AbsorptionType) String() string {
	if a == AbsorptionBuying {
		return "buying"
	}
	return "selling"
}

// Strength is the ordinal absorption-zone strength. Peak strength is
// stored as this ordinal internally; the string form only appears at
// emission, per the "string discriminants only at the edge" rewrite.
type Strength uint8

const (
	StrengthWeak Strength = iota
	StrengthMedium
	StrengthStrong
	StrengthDefended
)

func (s Strength) String() string {
	switch s {
	case StrengthWeak:
		return "weak"
	case StrengthMedium:
		return "medium"
	case StrengthStrong:
		return "strong"
	default:
		return "defended"
	}
}

// Outcome is the result a SignalRecord is classified into at the 5-minute mark.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeWin
	OutcomeLoss
	OutcomeBreakeven
)

func (o Outcome) String() string {
	switch o {
	case OutcomeWin:
		return "win"
	case OutcomeLoss:
		return "loss"
	case OutcomeBreakeven:
		return "breakeven"
	default:
		return "pending"
	}
}

// Bubble is a one-per-tick aggression snapshot: the dominant side's VWAP and
// volume for the window just closed.
type Bubble struct {
	ID                     uint64    `json:"id"`
	Price                  float64   `json:"price"`
	DominantVolume         uint64    `json:"dominantVolume"`
	Side                   Side      `json:"side"`
	EventTimeMs            int64     `json:"eventTimeMs"`
	SignificantImbalance   bool      `json:"significantImbalance"`
	ImbalanceRatio         float64   `json:"imbalanceRatio"`
}

// CVDPoint is a one-per-tick running cumulative-volume-delta sample.
type CVDPoint struct {
	EventTimeMs int64 `json:"eventTimeMs"`
	CVD         int64 `json:"cvd"`
}

// VolumeProfileLevel is one ¼-point bucket of the session volume profile.
type VolumeProfileLevel struct {
	Price       float64 `json:"price"`
	BuyVolume   uint64  `json:"buyVolume"`
	SellVolume  uint64  `json:"sellVolume"`
	TotalVolume uint64  `json:"totalVolume"`
}

// AbsorptionEvent is emitted when the emission gate for an absorption zone
// update fires.
type AbsorptionEvent struct {
	EventTimeMs    int64          `json:"eventTimeMs"`
	Price          float64        `json:"price"`
	Type           AbsorptionType `json:"type"`
	WindowDelta    int64          `json:"windowDelta"`
	PriceChange    float64        `json:"priceChange"`
	Strength       Strength       `json:"strength"`
	EventCount     uint32         `json:"eventCount"`
	TotalAbsorbed  int64          `json:"totalAbsorbed"`
	AtKeyLevel     bool           `json:"atKeyLevel"`
	AgainstTrend   bool           `json:"againstTrend"`
}

// AbsorptionZone is the current public snapshot of a zone in the registry.
type AbsorptionZone struct {
	Price         float64        `json:"price"`
	Type          AbsorptionType `json:"type"`
	TotalAbsorbed int64          `json:"totalAbsorbed"`
	EventCount    uint32         `json:"eventCount"`
	FirstSeenMs   int64          `json:"firstSeenMs"`
	LastSeenMs    int64          `json:"lastSeenMs"`
	PeakStrength  Strength       `json:"peakStrength"`
	AtPOC         bool           `json:"atPoc"`
	AtVAH         bool           `json:"atVah"`
	AtVAL         bool           `json:"atVal"`
	AgainstTrend  bool           `json:"againstTrend"`
}

// DeltaFlip is emitted when the running CVD sign crosses zero.
type DeltaFlip struct {
	EventTimeMs int64     `json:"eventTimeMs"`
	Direction   Direction `json:"direction"`
	CVDBefore   int64     `json:"cvdBefore"`
	CVDAfter    int64     `json:"cvdAfter"`
}

// StackedImbalance is emitted for a qualifying run of one-point dominated
// buckets in the session volume profile.
type StackedImbalance struct {
	EventTimeMs    int64   `json:"eventTimeMs"`
	Side           Side    `json:"side"`
	LevelCount     uint32  `json:"levelCount"`
	PriceLow       float64 `json:"priceLow"`
	PriceHigh      float64 `json:"priceHigh"`
	TotalImbalance int64   `json:"totalImbalance"`
}

// ConfluenceEvent is emitted when several signal kinds agree on direction
// within the confluence window.
type ConfluenceEvent struct {
	EventTimeMs int64        `json:"eventTimeMs"`
	Price       float64      `json:"price"`
	Direction   Direction    `json:"direction"`
	Score       int          `json:"score"`
	Signals     []SignalKind `json:"signals"`
}

// SignalRecord is the outcome-tracking entry created for every emitted
// signal (including confluences).
type SignalRecord struct {
	SessionStartMs int64
	SeqID          uint64
	EventTimeMs    int64
	Price          float64
	Kind           SignalKind
	Direction      Direction
	PriceAfter1m   *float64
	PriceAfter5m   *float64
	Outcome       Outcome
}

// SignalStats aggregates one signal kind's SignalRecords.
type SignalStats struct {
	Count         uint32  `json:"count"`
	BullishCount  uint32  `json:"bullishCount"`
	BearishCount  uint32  `json:"bearishCount"`
	Wins          uint32  `json:"wins"`
	Losses        uint32  `json:"losses"`
	AvgMove1m     float64 `json:"avgMove1m"`
	AvgMove5m     float64 `json:"avgMove5m"`
	WinRate       float64 `json:"winRate"`
}

// SessionStats is a pure function of the retained SignalRecords plus session
// metadata — it carries no state of its own.
type SessionStats struct {
	SessionStartMs    int64       `json:"sessionStartMs"`
	DeltaFlips        SignalStats `json:"deltaFlips"`
	Absorptions       SignalStats `json:"absorptions"`
	StackedImbalances SignalStats `json:"stackedImbalances"`
	Confluences       SignalStats `json:"confluences"`
	CurrentPrice      float64     `json:"currentPrice"`
	SessionHigh       float64     `json:"sessionHigh"`
	SessionLow        float64     `json:"sessionLow"`
	TotalVolume       uint64      `json:"totalVolume"`
}

// ArtifactKind discriminates the Artifact tagged union.
type ArtifactKind uint8

const (
	ArtifactBubble ArtifactKind = iota
	ArtifactCVDPoint
	ArtifactVolumeProfile
	ArtifactAbsorptionEvent
	ArtifactAbsorptionZones
	ArtifactDeltaFlip
	ArtifactStackedImbalance
	ArtifactConfluence
	ArtifactSessionStats
	ArtifactConnected
	ArtifactError
)

// Artifact is the tagged union broadcast over the dispatcher. Exactly one of
// the typed fields is populated, selected by Kind.
type Artifact struct {
	Kind ArtifactKind `json:"kind"`

	Bubble            *Bubble              `json:"bubble,omitempty"`
	CVDPoint          *CVDPoint            `json:"cvdPoint,omitempty"`
	VolumeProfile     []VolumeProfileLevel `json:"volumeProfile,omitempty"`
	AbsorptionEvent   *AbsorptionEvent     `json:"absorptionEvent,omitempty"`
	AbsorptionZones   []AbsorptionZone     `json:"absorptionZones,omitempty"`
	DeltaFlip         *DeltaFlip           `json:"deltaFlip,omitempty"`
	StackedImbalance  *StackedImbalance    `json:"stackedImbalance,omitempty"`
	Confluence        *ConfluenceEvent     `json:"confluence,omitempty"`
	SessionStats      *SessionStats        `json:"sessionStats,omitempty"`
	ConnectedSymbols  []string             `json:"connectedSymbols,omitempty"`
	ErrorMessage      string               `json:"errorMessage,omitempty"`
}
