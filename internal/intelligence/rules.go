package intelligence

// Rule categories
const (
	CategoryIdentity    = "identity"
	CategoryMeasurement = "measurement"
	CategoryValveSpec   = "valve_spec"
	CategoryTechnical   = "technical"
)

// FieldRule associates an output field name with a single-capture pattern.
// The first capture group of the first match in document order is the value.
type FieldRule struct {
	Field       string
	Category    string
	Pattern     string
	Description string
}

// ClassificationRule maps lowercase keywords to a document type
type ClassificationRule struct {
	Name         string
	DocumentType DocumentType
	Keywords     []string
	Priority     int
	Enabled      bool
}

// getDefaultClassificationRules returns the keyword rules used to type documents
func getDefaultClassificationRules() []ClassificationRule {
	return []ClassificationRule{
		{
			Name:         "instrumentation_datasheet_keywords",
			DocumentType: DocumentTypeInstrumentationDatasheet,
			Keywords: []string{
				"instrumentation data sheet",
				"control valve",
				"datasheet",
			},
			Priority: 1,
			Enabled:  true,
		},
	}
}

// getIdentityRules returns label: value rules for title block and identity fields
func getIdentityRules() []FieldRule {
	return []FieldRule{
		{
			Field:       "Project Number",
			Category:    CategoryIdentity,
			Pattern:     `(?im)\bproject\s*(?:no\.?|number|#)\s*[:\-]\s*([^\n]+?)\s*$`,
			Description: "Project number from the title block",
		},
		{
			Field:       "Unit",
			Category:    CategoryIdentity,
			Pattern:     `(?im)\bunit\s*(?:no\.?|number)?\s*[:\-]\s*([^\n]+?)\s*$`,
			Description: "Process unit code",
		},
		{
			Field:       "Serial Number",
			Category:    CategoryIdentity,
			Pattern:     `(?im)\bserial\s*(?:no\.?|number)\s*[:\-]\s*([^\n]+?)\s*$`,
			Description: "Equipment serial number",
		},
		{
			Field:    "Model Number",
			Category: CategoryIdentity,
			Pattern:  `(?im)\bmodel\s*(?:no\.?|number)\s*[:\-]\s*([^\n]+?)\s*$`,
		},
		{
			Field:    "Part Number",
			Category: CategoryIdentity,
			Pattern:  `(?im)\bpart\s*(?:no\.?|number)\s*[:\-]\s*([^\n]+?)\s*$`,
		},
		{
			Field:    "Tag Number",
			Category: CategoryIdentity,
			Pattern:  `(?im)\btag\s*(?:no\.?|number)\s*[:\-]\s*([^\n]+?)\s*$`,
		},
		{
			Field:    "Manufacturer",
			Category: CategoryIdentity,
			Pattern:  `(?im)\bmanufacturer\s*[:\-]\s*([^\n]+?)\s*$`,
		},
		{
			Field:       "Material",
			Category:    CategoryIdentity,
			Pattern:     `(?im)^\s*(?:[a-z]+\s+)?material\s*[:\-]\s*([^\n]+?)\s*$`,
			Description: "Material of construction",
		},
	}
}

// getMeasurementRules returns label + number + unit rules
func getMeasurementRules() []FieldRule {
	return []FieldRule{
		{
			Field:    "Pressure",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bpressure\s*[:\-]?\s*(-?\d+(?:[.,]\d+)?\s*(?:psig|psia|psi|barg|bar|kpa|mpa|kg/cm2))`,
		},
		{
			Field:    "Temperature",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\btemperature\s*[:\-]?\s*(-?\d+(?:\.\d+)?\s*(?:°\s*)?(?:deg\s*)?[CF])\b`,
		},
		{
			Field:    "Flow Rate",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bflow(?:\s*rate)?\s*[:\-]?\s*(\d+(?:[.,]\d+)?\s*(?:m3/h|m³/h|nm3/h|gpm|l/s|l/min|kg/h|t/h|scfm))`,
		},
		{
			Field:    "Voltage",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bvoltage\s*[:\-]?\s*(\d+(?:\.\d+)?\s*(?:kv|v))\b`,
		},
		{
			Field:    "Power",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bpower\s*[:\-]?\s*(\d+(?:\.\d+)?\s*(?:kw|mw|hp|w))\b`,
		},
		{
			Field:    "Weight",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bweight\s*[:\-]?\s*(\d+(?:[.,]\d+)?\s*(?:kg|lbs?|t))\b`,
		},
		{
			Field:    "Size",
			Category: CategoryMeasurement,
			Pattern:  `(?i)\bsize\s*[:\-]?\s*(\d+(?:[./]\d+)?\s*(?:"|inch(?:es)?|in|mm)|(?:DN|NPS)\s*\d+)`,
		},
	}
}

// getValveSpecRules returns the label lookups used on control valve datasheets.
// Field doubles as the cell label searched in tables.
func getValveSpecRules() []FieldRule {
	return []FieldRule{
		{
			Field:    "Body Material",
			Category: CategoryValveSpec,
			Pattern:  `(?im)\bbody\s*material\s*[:\-]?\s*([^\n]+?)\s*$`,
		},
		{
			Field:    "Valve Size",
			Category: CategoryValveSpec,
			Pattern:  `(?im)\b(?:valve|body)\s*size\s*[:\-]?\s*([^\n]+?)\s*$`,
		},
		{
			Field:    "Pressure Class",
			Category: CategoryValveSpec,
			Pattern:  `(?i)\b(?:pressure\s*)?(?:class|rating)\s*[:\-]?\s*((?:ANSI\s*)?\d{3,4}\s*#?|PN\s*\d+)`,
		},
		{
			Field:    "End Connection",
			Category: CategoryValveSpec,
			Pattern:  `(?im)\bend\s*connections?\s*[:\-]?\s*([^\n]+?)\s*$`,
		},
	}
}

// getTechnicalFieldRules returns the rules applied to individual datasheets
// cut out of a multi-equipment document.
func getTechnicalFieldRules() []FieldRule {
	return []FieldRule{
		{Field: "Model", Category: CategoryTechnical, Pattern: `(?i)model\s*(?:number|no\.?):\s*([A-Z0-9\-.\t ]+?)(?:\n|$)`},
		{Field: "Manufacturer", Category: CategoryTechnical, Pattern: `(?i)manufacturer:\s*([A-Za-z0-9\t &,.\-]+?)(?:\n|$)`},
		{Field: "Serial Number", Category: CategoryTechnical, Pattern: `(?i)serial\s*(?:number|no\.?):\s*([A-Z0-9\-]+)`},
		{Field: "Flow Rate", Category: CategoryTechnical, Pattern: `(?i)flow\s*rate:\s*([0-9.,]+\s*[A-Za-z/][A-Za-z0-9/³]*)`},
		{Field: "Pressure", Category: CategoryTechnical, Pattern: `(?i)pressure:\s*([0-9.,]+\s*[A-Za-z/]+)`},
		{Field: "Temperature", Category: CategoryTechnical, Pattern: `(?i)temperature:\s*([0-9.,\-°CF\t ]+)`},
		{Field: "Power", Category: CategoryTechnical, Pattern: `(?i)power:\s*([0-9.,]+\s*[A-Za-z/]+)`},
		{Field: "Voltage", Category: CategoryTechnical, Pattern: `(?i)voltage:\s*([0-9.,]+\s*[Vv])`},
		{Field: "Material", Category: CategoryTechnical, Pattern: `(?i)material:\s*([A-Za-z0-9\t ,.\-]+?)(?:\n|$)`},
		{Field: "Size", Category: CategoryTechnical, Pattern: `(?i)size:\s*([0-9.,\t "x\-A-Za-z]+?)(?:\n|$)`},
		{Field: "Weight", Category: CategoryTechnical, Pattern: `(?i)weight:\s*([0-9.,]+\s*[A-Za-z]+)`},
	}
}

// Pattern categories for two-letter prefixes of structural tag matches
const (
	PatternCategoryValves       = "Valves"
	PatternCategoryInstruments  = "Instruments"
	PatternCategoryTransmitters = "Transmitters"
	PatternCategoryControllers  = "Controllers"
	PatternCategoryOther        = "Other Equipment"
)

// patternCategoryOrder is the output order of grouped pattern fields
var patternCategoryOrder = []string{
	PatternCategoryValves,
	PatternCategoryInstruments,
	PatternCategoryTransmitters,
	PatternCategoryControllers,
	PatternCategoryOther,
}

// patternPrefixCategories maps two-letter prefixes to engineering categories
var patternPrefixCategories = map[string]string{
	"PV": PatternCategoryValves, "CV": PatternCategoryValves, "FV": PatternCategoryValves,
	"LV": PatternCategoryValves, "TV": PatternCategoryValves,
	"PI": PatternCategoryInstruments, "FI": PatternCategoryInstruments, "TI": PatternCategoryInstruments,
	"LI": PatternCategoryInstruments, "AI": PatternCategoryInstruments,
	"PT": PatternCategoryTransmitters, "FT": PatternCategoryTransmitters, "TT": PatternCategoryTransmitters,
	"LT": PatternCategoryTransmitters, "AT": PatternCategoryTransmitters,
	"PC": PatternCategoryControllers, "FC": PatternCategoryControllers, "TC": PatternCategoryControllers,
	"LC": PatternCategoryControllers, "AC": PatternCategoryControllers,
}

// Keyword vocabularies for presence tests
var (
	equipmentTypeKeywords = []string{
		"pump", "valve", "heat exchanger", "vessel", "drum",
		"compressor", "turbine", "separator", "reactor", "column",
	}

	serviceKeywords = []string{
		"cooling water", "steam", "nitrogen", "compressed air", "instrument air",
		"natural gas", "fuel gas", "electrical", "hydraulic", "pneumatic",
	}

	// facility and owner names recognised in title blocks
	facilityKeywords = []string{
		"refinery", "gas plant", "petrochemical complex", "tank farm", "terminal",
		"compressor station", "pump station", "offshore platform", "power plant",
		"water treatment plant",
	}

	titleKeywords = []string{"drawing", "title", "diagram", "process"}

	notesStopKeywords = []string{"SPECIFICATIONS", "EQUIPMENT LIST", "LEGEND", "SYMBOLS"}
)

// Raw patterns of the document-wide scans
const (
	structuralTagPattern = `\b[A-Za-z]{2}\d{4}\b`
	utilityCodePattern   = `\b(CW|SW|IA|NA|NG|FG|STM)\b`
	datePattern          = `\b\d{1,2}[/-]\d{1,2}[/-]\d{2,4}\b|\b\d{4}[/-]\d{1,2}[/-]\d{1,2}\b`
	pressureUnitPattern  = `\b\d+\.?\d*\s*(?:psi|bar|kpa|mpa)\b`
	temperaturePattern   = `\b\d+\.?\d*\s*°?[cf]\b|\b\d+\.?\d*\s*deg\s*[cf]\b`
	valveTagPattern      = `\b[A-Z]{1,3}V-?\d{3,5}[A-Z]?\b`
	revisionRowPattern   = `(?m)^\s*([0-9A-Z]{1,2})\s+(\d{1,2}/[A-Za-z]{3}/\d{2})\s+(.+?)\s+([A-Z]{2,4})\s+([A-Z]{2,4})\s+([A-Z]{2,4})\s*$`
)

// equipmentTagPatterns are the tag shapes unioned for the equipment summary
var equipmentTagPatterns = []string{
	`\b[A-Z]{1,3}-?\d{3,5}[A-Z]?\b`,
	`\b[A-Z]{2,4}-\d{2,4}-[A-Z0-9]{1,4}\b`,
}
