package sizespec

// ValidateChunkWidth reports whether text is a comma-separated list of
// integers each >= 1.
func ValidateChunkWidth(text string) bool {
	_, err := ParseChunkWidth(text)
	return err == nil
}

// ValidChunkWidthValue is ValidateChunkWidth for loosely typed values such as
// decoded config fields; anything other than a string is invalid.
func ValidChunkWidthValue(v any) bool {
	text, ok := v.(string)
	return ok && ValidateChunkWidth(text)
}

// PrincipalChunkWidth returns the first width of a chunk-width string.
func PrincipalChunkWidth(text string) (int, error) {
	widths, err := ParseChunkWidth(text)
	if err != nil {
		return 0, err
	}
	return widths.Principal(), nil
}

// ValidateRangeStr reports whether text is a comma-separated list of
// positive integers and lo:hi ranges with 1 <= lo <= hi.
func ValidateRangeStr(text string) bool {
	_, err := ParseRangeSet(text)
	return err == nil
}

// ValidateMinibatchSizeStr reports whether text is a valid minibatch-size
// spec.
func ValidateMinibatchSizeStr(text string) bool {
	_, err := ParseMinibatchSize(text)
	return err == nil
}

// HalveRangeStr halves every integer of a range string, clamping at 1.
func HalveRangeStr(text string) (string, error) {
	set, err := ParseRangeSet(text)
	if err != nil {
		return "", err
	}
	return set.Halve().String(), nil
}

// HalveMinibatchSizeStr halves the size values of a minibatch-size spec,
// leaving example-length keys untouched.
func HalveMinibatchSizeStr(text string) (string, error) {
	spec, err := ParseMinibatchSize(text)
	if err != nil {
		return "", err
	}
	return spec.Halve().String(), nil
}
