package analysis

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var stopwords = map[string]map[string]struct{}{
	"en": wordSet(
		"a", "an", "and", "are", "as", "at", "be", "by", "can", "for", "from",
		"have", "if", "in", "is", "it", "may", "not", "of", "on", "or", "tbd",
		"that", "the", "this", "to", "us", "we", "when", "will", "with", "yet",
		"you", "your",
	),
	"fr": wordSet(
		"au", "aux", "avec", "ce", "ces", "dans", "de", "des", "du", "elle",
		"en", "et", "il", "ils", "la", "le", "les", "leur", "lui", "mais",
		"ne", "nous", "on", "ou", "par", "pas", "pour", "qu", "que", "qui",
		"sa", "se", "ses", "son", "sur", "un", "une", "vous",
	),
	"nl": wordSet(
		"aan", "als", "bij", "dan", "dat", "de", "die", "dit", "een", "en",
		"er", "het", "hij", "in", "is", "met", "niet", "of", "om", "op",
		"te", "tot", "uit", "van", "voor", "was", "wat", "ze", "zij", "zijn",
	),
	"de": wordSet(
		"auf", "aus", "bei", "das", "dem", "den", "der", "des", "die", "ein",
		"eine", "einen", "einer", "es", "für", "im", "in", "ist", "mit",
		"nicht", "oder", "sich", "sie", "und", "von", "war", "wie", "zu",
		"zum", "zur",
	),
}
