package jpi

// composeRows applies component G's post-pass to a fully materialized row
// set: MARK edge-only suppression, repeat-row carry of the four
// fast-changing GPS/speed columns, generic carry-forward for everything
// else, and single-gap GPS smoothing. Headers and rows share the DATE,
// TIME prefix at indices 0 and 1.
func composeRows(headers []string, rows [][]string, isRepeat []bool) {
	markCol := indexOfHeader(headers, "MARK")
	latCol := indexOfHeader(headers, "LAT")
	lngCol := indexOfHeader(headers, "LNG")
	spdCol := indexOfHeader(headers, "SPD")
	altCol := indexOfHeader(headers, "ALT")

	if markCol >= 0 && len(rows) > 0 {
		prevMark := rows[0][markCol]
		for i := 1; i < len(rows); i++ {
			mark := rows[i][markCol]
			if mark == prevMark {
				rows[i][markCol] = ""
			}
			prevMark = mark
		}
	}

	repeatCarryCols := []int{latCol, lngCol, spdCol, altCol}
	for i := 1; i < len(rows); i++ {
		if !isRepeat[i] {
			continue
		}
		for _, c := range repeatCarryCols {
			if c >= 0 && isNAOrEmpty(rows[i][c]) {
				rows[i][c] = rows[i-1][c]
			}
		}
	}

	excluded := map[int]bool{0: true, 1: true}
	for _, c := range []int{markCol, latCol, lngCol, spdCol, altCol} {
		if c >= 0 {
			excluded[c] = true
		}
	}
	for i := 1; i < len(rows); i++ {
		for c := 2; c < len(headers); c++ {
			if excluded[c] {
				continue
			}
			if isNAOrEmpty(rows[i][c]) {
				rows[i][c] = rows[i-1][c]
			}
		}
	}

	for _, c := range []int{latCol, lngCol} {
		if c < 0 {
			continue
		}
		for i := 1; i < len(rows)-1; i++ {
			if isNAOrEmpty(rows[i][c]) && !isNAOrEmpty(rows[i-1][c]) && !isNAOrEmpty(rows[i+1][c]) {
				rows[i][c] = rows[i-1][c]
			}
		}
	}
}

func isNAOrEmpty(s string) bool { return s == "" || s == "NA" }

func indexOfHeader(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}
