package extract

// IsNumericToken reports whether tok is a complete decimal number:
//
//	[+-]? ( digits ( '.' digits? )? | '.' digits ) ( [eE] [+-]? digits )?
func IsNumericToken(tok string) bool {
	i := 0
	n := len(tok)

	if i < n && (tok[i] == '+' || tok[i] == '-') {
		i++
	}

	intDigits := scanDigits(tok, i)
	i += intDigits

	fracDigits := 0
	if i < n && tok[i] == '.' {
		i++
		fracDigits = scanDigits(tok, i)
		i += fracDigits
	}

	// "." alone, "+" or "" carry no digits.
	if intDigits == 0 && fracDigits == 0 {
		return false
	}

	if i < n && (tok[i] == 'e' || tok[i] == 'E') {
		i++
		if i < n && (tok[i] == '+' || tok[i] == '-') {
			i++
		}
		expDigits := scanDigits(tok, i)
		if expDigits == 0 {
			return false
		}
		i += expDigits
	}

	return i == n
}

func scanDigits(s string, from int) int {
	n := 0
	for from+n < len(s) && s[from+n] >= '0' && s[from+n] <= '9' {
		n++
	}
	return n
}
