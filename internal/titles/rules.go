package titles

// studyRules labels the analysis specification template.
var studyRules = []Rule{
	{"name", "Study Name"},

	{"cohortDefinitions.targetCohort.id", "Target Cohort ID"},
	{"cohortDefinitions.targetCohort.name", "Target Cohort Name"},
	{"cohortDefinitions.comparatorCohort.id", "Comparator Cohort ID"},
	{"cohortDefinitions.comparatorCohort.name", "Comparator Cohort Name"},
	{"cohortDefinitions.outcomeCohort.*.id", "Outcome Cohort #{1} ID"},
	{"cohortDefinitions.outcomeCohort.*.name", "Outcome Cohort #{1} Name"},

	{"negativeControlConceptSet.id", "Negative Control Concept Set ID"},
	{"negativeControlConceptSet.name", "Negative Control Concept Set Name"},

	{"covariateSelection.conceptsToInclude.*.id", "Concept to Include #{1} ID"},
	{"covariateSelection.conceptsToInclude.*.name", "Concept to Include #{1} Name"},
	{"covariateSelection.conceptsToExclude.*.id", "Concept to Exclude #{1} ID"},
	{"covariateSelection.conceptsToExclude.*.name", "Concept to Exclude #{1} Name"},

	{"getDbCohortMethodDataArgs.maxCohortSize", "Max Cohort Size"},
	{"getDbCohortMethodDataArgs.studyPeriods.*.studyStartDate", "Study Period #{1} Start Date"},
	{"getDbCohortMethodDataArgs.studyPeriods.*.studyEndDate", "Study Period #{1} End Date"},

	{"createStudyPopArgs.restrictToCommonPeriod", "Restrict to Common Period"},
	{"createStudyPopArgs.firstExposureOnly", "First Exposure Only"},
	{"createStudyPopArgs.washoutPeriod", "Washout Period (days)"},
	{"createStudyPopArgs.removeDuplicateSubjects", "Remove Duplicate Subjects"},
	{"createStudyPopArgs.censorAtNewRiskWindow", "Censor at New Risk Window"},
	{"createStudyPopArgs.removeSubjectsWithPriorOutcome", "Remove Subjects with Prior Outcome"},
	{"createStudyPopArgs.priorOutcomeLookBack", "Prior Outcome Lookback (days)"},
	{"createStudyPopArgs.timeAtRisks.*.description", "Time-at-Risk #{1} Description"},
	{"createStudyPopArgs.timeAtRisks.*.riskWindowStart", "Time-at-Risk #{1} Start Offset"},
	{"createStudyPopArgs.timeAtRisks.*.startAnchor", "Time-at-Risk #{1} Start Anchor"},
	{"createStudyPopArgs.timeAtRisks.*.riskWindowEnd", "Time-at-Risk #{1} End Offset"},
	{"createStudyPopArgs.timeAtRisks.*.endAnchor", "Time-at-Risk #{1} End Anchor"},
	{"createStudyPopArgs.timeAtRisks.*.minDaysAtRisk", "Time-at-Risk #{1} Min Days at Risk"},

	{"propensityScoreAdjustment.matchOnPsArgs.*.description", "Match on PS #{1} Description"},
	{"propensityScoreAdjustment.matchOnPsArgs.*.maxRatio", "Match on PS #{1} Max Ratio"},
	{"propensityScoreAdjustment.matchOnPsArgs.*.caliper", "Match on PS #{1} Caliper"},
	{"propensityScoreAdjustment.matchOnPsArgs.*.caliperScale", "Match on PS #{1} Caliper Scale"},
	{"propensityScoreAdjustment.stratifyByPsArgs.*.description", "Stratify by PS #{1} Description"},
	{"propensityScoreAdjustment.stratifyByPsArgs.*.numberOfStrata", "Stratify by PS #{1} Number of Strata"},
	{"propensityScoreAdjustment.stratifyByPsArgs.*.baseSelection", "Stratify by PS #{1} Base Selection"},

	{"propensityScoreAdjustment.createPsArgs.maxCohortSizeForFitting", "PS: Max Cohort Size for Fitting"},
	{"propensityScoreAdjustment.createPsArgs.errorOnHighCorrelation", "PS: Error on High Correlation"},
	{"propensityScoreAdjustment.createPsArgs.prior.priorType", "PS: Prior Type"},
	{"propensityScoreAdjustment.createPsArgs.prior.useCrossValidation", "PS: Prior Use Cross-Validation"},
	{"propensityScoreAdjustment.createPsArgs.control.tolerance", "PS: Control Tolerance"},
	{"propensityScoreAdjustment.createPsArgs.control.cvType", "PS: Control CV Type"},
	{"propensityScoreAdjustment.createPsArgs.control.fold", "PS: Control Folds"},
	{"propensityScoreAdjustment.createPsArgs.control.cvRepetitions", "PS: Control CV Repetitions"},
	{"propensityScoreAdjustment.createPsArgs.control.noiseLevel", "PS: Control Noise Level"},
	{"propensityScoreAdjustment.createPsArgs.control.resetCoefficients", "PS: Control Reset Coefficients"},
	{"propensityScoreAdjustment.createPsArgs.control.startingVariance", "PS: Control Starting Variance"},

	{"fitOutcomeModelArgs.modelType", "Outcome Model Type"},
	{"fitOutcomeModelArgs.stratified", "Outcome Model Stratified"},
	{"fitOutcomeModelArgs.useCovariates", "Use Covariates"},
	{"fitOutcomeModelArgs.inversePtWeighting", "Inverse Probability of Treatment Weighting"},
	{"fitOutcomeModelArgs.prior.priorType", "Outcome Model Prior Type"},
	{"fitOutcomeModelArgs.prior.useCrossValidation", "Outcome Model Prior Use Cross-Validation"},
	{"fitOutcomeModelArgs.control.tolerance", "Outcome Control Tolerance"},
	{"fitOutcomeModelArgs.control.cvType", "Outcome Control CV Type"},
	{"fitOutcomeModelArgs.control.fold", "Outcome Control Folds"},
	{"fitOutcomeModelArgs.control.cvRepetitions", "Outcome Control CV Repetitions"},
	{"fitOutcomeModelArgs.control.noiseLevel", "Outcome Control Noise Level"},
	{"fitOutcomeModelArgs.control.resetCoefficients", "Outcome Control Reset Coefficients"},
	{"fitOutcomeModelArgs.control.startingVariance", "Outcome Control Starting Variance"},
}

// StudyRules returns a copy of the built-in rules for the study template.
func StudyRules() []Rule {
	out := make([]Rule, len(studyRules))
	copy(out, studyRules)
	return out
}
