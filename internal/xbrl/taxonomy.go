package xbrl

// Concept names extracted from every filing.
const (
	ConceptNetSales           = "net_sales"
	ConceptOperatingIncome    = "operating_income"
	ConceptNetIncome          = "net_income"
	ConceptOperatingCashFlow  = "operating_cash_flow"
	ConceptTotalAssets        = "total_assets"
	ConceptTotalLiabilities   = "total_liabilities"
	ConceptNetAssets          = "net_assets"
	ConceptCurrentAssets      = "current_assets"
	ConceptCurrentLiabilities = "current_liabilities"
	ConceptInventories        = "inventories"
	ConceptAccountsReceivable = "accounts_receivable"
	ConceptCash               = "cash"
	ConceptDebt               = "debt"
	ConceptTotalShares        = "total_shares"
)

// DefaultConcepts returns the built-in concept dictionary. Tag lists are in
// priority order covering IFRS (jpigp_cor), Japanese GAAP (jppfs_cor) and
// older or US-GAAP summary tags.
func DefaultConcepts() []Concept {
	inventory := DefaultInventorySpec()
	return []Concept{
		{
			Name: ConceptNetSales,
			Kind: Duration,
			Tags: []string{
				"jpigp_cor:NetSalesIFRS",
				"jpigp_cor:RevenueIFRS",
				"SalesAndFinancialServicesRevenueIFRS",
				"jppfs_cor:NetSales",
				"NetSales",
				"OperatingRevenue1",
				"Revenue",
				"SalesRevenue",
			},
		},
		{
			Name: ConceptOperatingIncome,
			Kind: Duration,
			Tags: []string{
				"jpigp_cor:OperatingProfitLossIFRS",
				"jppfs_cor:OperatingIncome",
				"OperatingIncome",
				"OperatingProfitLoss",
				"OperatingIncomeLoss",
			},
		},
		{
			Name: ConceptNetIncome,
			Kind: Duration,
			Tags: []string{
				"jpigp_cor:ProfitLossAttributableToOwnersOfParentIFRS",
				"jpigp_cor:ProfitLossIFRS",
				"jppfs_cor:ProfitLoss",
				"jppfs_cor:NetIncome",
				"ProfitLossAttributableToOwnersOfParent",
				"NetIncome",
				"ProfitLoss",
				"NetIncomeLoss",
			},
		},
		{
			Name: ConceptOperatingCashFlow,
			Kind: Duration,
			Tags: []string{
				"jpigp_cor:NetCashProvidedByUsedInOperatingActivitiesIFRS",
				"jppfs_cor:NetCashProvidedByUsedInOperatingActivities",
				"NetCashProvidedByUsedInOperatingActivities",
				"CashFlowsFromUsedInOperatingActivities",
			},
		},
		{
			Name: ConceptTotalAssets,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:AssetsIFRS",
				"jppfs_cor:Assets",
				"Assets",
				"TotalAssets",
			},
		},
		{
			Name: ConceptTotalLiabilities,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:LiabilitiesIFRS",
				"jppfs_cor:Liabilities",
				"Liabilities",
				"TotalLiabilities",
			},
		},
		{
			Name: ConceptNetAssets,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:EquityIFRS",
				"jppfs_cor:NetAssets",
				"NetAssets",
				"Equity",
			},
		},
		{
			Name: ConceptCurrentAssets,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:CurrentAssetsIFRS",
				"jppfs_cor:CurrentAssets",
				"CurrentAssets",
				"AssetsCurrent",
			},
		},
		{
			Name: ConceptCurrentLiabilities,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:TotalCurrentLiabilitiesIFRS",
				"jppfs_cor:CurrentLiabilities",
				"CurrentLiabilities",
				"LiabilitiesCurrent",
			},
		},
		{
			Name:      ConceptInventories,
			Kind:      Instant,
			Tags:      inventory.TotalTags,
			Composite: &inventory,
		},
		{
			Name: ConceptAccountsReceivable,
			Kind: Instant,
			Tags: []string{
				"jpigp_cor:TradeAndOtherReceivablesCAIFRS",
				"jppfs_cor:NotesAndAccountsReceivableTrade",
				"NotesAndAccountsReceivableTradeAndContractAssets",
				"NotesAndAccountsReceivableTrade",
				"AccountsReceivableTrade",
			},
		},
		{
			Name: ConceptCash,
			Kind: Instant,
			Tags: []string{
				"CashAndDeposits",
				"CashAndCashEquivalents",
			},
		},
		{
			Name: ConceptDebt,
			Kind: Instant,
			Tags: []string{
				"ShortTermLoansPayable",
				"LongTermLoansPayable",
				"CurrentPortionOfLongTermLoansPayable",
				"BondsPayable",
				"CurrentPortionOfBonds",
				"CommercialPapersLiabilities",
			},
		},
		{
			// Share counts are unit "shares" and reported on the parent entity.
			Name:          ConceptTotalShares,
			Kind:          Instant,
			SkipUnitCheck: true,
			AnyScope:      true,
			Tags: []string{
				"TotalNumberOfIssuedSharesSummaryOfBusinessResults",
				"NumberOfIssuedSharesAsOfFiscalYearEndIssuedSharesTotalNumberOfSharesEtc",
			},
		},
	}
}
