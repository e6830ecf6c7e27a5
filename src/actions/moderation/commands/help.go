package commands

const helpText = "Survey bot commands:\n" +
	"`/survey entr` register and get your personal survey link\n" +
	"`/survey review <id>` get the review link of a response\n" +
	"`/survey vote <id> a|d` approve or reject a response\n" +
	"`/survey info <id>` show the status of a response\n" +
	"\n" +
	"Administrators:\n" +
	"`/survey disable <id>` / `/survey enable <id>` hide or show a response\n" +
	"`/survey delete <id>` / `/survey restore <id>` archive or restore a response\n" +
	"`/survey purge <id>` delete a response permanently\n" +
	"`/survey trust <@user>` / `/survey ban <@user>` set or clear verification\n" +
	"\n" +
	"`<id>` is the 8 character short ID or the full response ID."
