package cli

var ParseEntryIDForTest = parseEntryID
