//go:build blockverify

package block

// Debug builds recompute every trusted hash to catch store corruption early.
const verifyTrusted = true
