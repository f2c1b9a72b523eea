// komandan
package main

import "bytes"

// isText reports whether the first 500 bytes of inputBytes look like plain
// text rather than binary data, used to warn when a rendered template
// doesn't look like text.
func isText(inputBytes *[]byte) (isPlainText bool) {
	const maximumNonPrintablePercentage float64 = 30

	totalCharacters := len(*inputBytes)
	if totalCharacters > 500 {
		totalCharacters = 500
	}

	if totalCharacters == 0 {
		isPlainText = true
		return
	}

	if len(*inputBytes) > 9 {
		pdfHeaderBytes := []byte{37, 80, 68, 70, 45, 49, 46, 52, 10}
		if bytes.Equal((*inputBytes)[:9], pdfHeaderBytes) {
			isPlainText = false
			return
		}
	}

	var nonPrintableCount int
	for i := range totalCharacters {
		b := (*inputBytes)[i]
		if b < 32 || b > 126 {
			nonPrintableCount++
		}
	}

	nonPrintablePercentage := (float64(nonPrintableCount) / float64(totalCharacters)) * 100
	printMessage(verbosityData, "  Data is %.2f%% non-printable ASCII characters (max: %g%%)\n", nonPrintablePercentage, maximumNonPrintablePercentage)

	isPlainText = nonPrintablePercentage < maximumNonPrintablePercentage
	return
}
