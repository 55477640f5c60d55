package console

const msgHelp = `Commands:

  open <path>                      go to a page (/, /about, /services, /surveys,
                                   /survey/<id>[?review=true&share=<token>],
                                   /admin, /create-survey, /edit-survey/<id>,
                                   /login, /register, /admin-login)
  login <username> <password>      sign in
  admin-login <username> <password>
  register key=value ...           first, middle, last, dob (YYYY-MM-DD), email,
                                   phone, username, password, confirm
  logout

Surveys page:
  take <survey id>                 open a survey from the list

Survey page:
  answer <question id> <value>     text, rating 1-10, or option text / number
  consent yes|no
  submit
  retake                           answer a completed survey again
  exit-share                       leave a shared survey

Admin dashboard:
  select <survey id>
  filter <start> <end>             dates as YYYY-MM-DD, end day included
  reset
  search [text]
  delete-response <id>
  delete-survey <id>
  confirm | cancel
  export xlsx|csv|pdf
  link <survey id>
  qr <survey id>
  edit <survey id>

Authoring (create / edit pages, or the selected survey on the dashboard):
  title <text>
  description <text>
  add-question <Text|Rating|MultipleChoice> <required|optional> <text> [options=A,B,C]
  remove-question <number>
  save

  help
  quit`

const msgHome = `Welcome to SurveySite.

Answer surveys, see which ones you have completed and review your answers.
Open /surveys to get started.`

const msgAbout = `SurveySite collects feedback through short surveys.

Each survey is a set of text, rating and multiple choice questions.
Your answers are stored only after you give consent.`

const msgServices = `What SurveySite offers:

  - Public and link-only surveys
  - Review of your submitted answers
  - Response analytics, filtering and export for administrators
  - Share links and QR codes for any survey`

const msgLoginPage = `Login with: login <username> <password>
No account yet? open /register`

const msgAdminLoginPage = `Admin login with: admin-login <username> <password>`

const msgRegisterPage = `Register with:
  register first=<name> last=<name> dob=YYYY-MM-DD email=<email> username=<name> password=<pass> confirm=<pass>
Optional: middle=<name> phone=<number>`

const msgNoQuestions = `This survey has no questions.`

const msgReview = `You have already completed this survey. Type "retake" to answer it again.`

const msgShared = `You are viewing a shared survey. Type "exit-share" to leave.`

const msgSubmitted = `Thank you! Your answers have been submitted.`

const msgUnknownCommand = `Unknown command. Type "help" to see the list of commands.`

const msgNotHere = `This command is not available on this page.`

const msgConfirmDelete = `Delete this survey? Type "confirm" or "cancel".`

const msgConfirmDeleteResponse = `Delete this response? Type "confirm" or "cancel".`

const msgBye = `Bye!`
