// Package estimator computes creatinine-based glomerular filtration rate
// estimates (GMR) and applies them across tables.
//
// The formula is
//
//	175 * sCR^-1.154 * age^-0.203 * (0.742 if female) * (1.212 if African American)
//
// Estimate evaluates it directly and never fails: non-positive inputs give
// NaN or +Inf. Sample.Rate validates its inputs first. Estimator.Apply adds
// GMR Pre and GMR Post to every row of a table; a row with unusable inputs
// gets an empty derived cell and a RowIssue, and the rest of the table is
// still processed.
package estimator
