package validators

// DefaultRegistry returns the built-in validator set. Short IDs are stable
// and appear in plan gate blocks interchangeably with the canonical metric
// names.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	// Registrations are static; errors here mean the table itself is wrong.
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}

	must(reg.Register("T1", MetricBuildHealth, CategoryAutomated, buildHealth{}))
	must(reg.Register("T2", MetricPageCoverage, CategoryAutomated, pageCoverage{}))
	must(reg.Register("T3", MetricScreenshotParity, CategoryAgent, screenshotParity{}))
	must(reg.Register("T4", MetricLinkIntegrity, CategoryAutomated, linkIntegrity{}))
	must(reg.Register("T5", MetricSpecCompliance, CategoryAgent, specCompliance{}))
	must(reg.Register("T6", MetricAssetIntegrity, CategoryAutomated, assetIntegrity{}))
	must(reg.Register("T7", MetricNavConsistency, CategoryExternal, nil))
	must(reg.Register("T8", MetricRegressionBudget, CategoryAutomated, regressionBudget{}))

	return reg
}
